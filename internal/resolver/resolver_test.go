package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestDNSServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{
		PacketConn: pc,
		Handler:    handler,
	}

	started := make(chan struct{})
	go func() {
		server.NotifyStartedFunc = func() { close(started) }
		_ = server.ActivateAndServe()
	}()
	<-started

	t.Cleanup(func() { _ = server.Shutdown() })
	return pc.LocalAddr().String()
}

// rewriteHandler 模拟 AdGuardHome：svc.lan 指向 10.0.0.2，web.lan 指向 svc.lan
func rewriteHandler(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	q := r.Question[0]
	hdr := func(rrtype uint16) dns.RR_Header {
		return dns.RR_Header{Name: q.Name, Rrtype: rrtype, Class: dns.ClassINET, Ttl: 10}
	}

	switch {
	case q.Name == "svc.lan." && q.Qtype == dns.TypeA:
		m.Answer = append(m.Answer, &dns.A{Hdr: hdr(dns.TypeA), A: net.ParseIP("10.0.0.2")})
	case q.Name == "v6.lan." && q.Qtype == dns.TypeAAAA:
		m.Answer = append(m.Answer, &dns.AAAA{Hdr: hdr(dns.TypeAAAA), AAAA: net.ParseIP("fd00::2")})
	case q.Name == "web.lan.":
		m.Answer = append(m.Answer, &dns.CNAME{Hdr: hdr(dns.TypeCNAME), Target: "svc.lan."})
	case q.Name == "broken.lan.":
		m.Rcode = dns.RcodeServerFailure
	}
	_ = w.WriteMsg(m)
}

func TestNewAddsDefaultPort(t *testing.T) {
	assert.Equal(t, "10.0.0.53:53", New("10.0.0.53", 0).Server())
	assert.Equal(t, "127.0.0.1:5353", New("127.0.0.1:5353", 0).Server())
	assert.Equal(t, "[fd00::53]:53", New("fd00::53", 0).Server())
}

func TestLookup(t *testing.T) {
	addr := startTestDNSServer(t, rewriteHandler)
	r := New(addr, time.Second)
	ctx := context.Background()

	answers, err := r.Lookup(ctx, "svc.lan")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2"}, answers)

	answers, err = r.Lookup(ctx, "v6.lan")
	require.NoError(t, err)
	assert.Equal(t, []string{"fd00::2"}, answers)

	// A 和 AAAA 查询都返回同一个 CNAME，只保留一次
	answers, err = r.Lookup(ctx, "web.lan")
	require.NoError(t, err)
	assert.Equal(t, []string{"svc.lan"}, answers)

	answers, err = r.Lookup(ctx, "missing.lan")
	require.NoError(t, err)
	assert.Empty(t, answers)

	_, err = r.Lookup(ctx, "broken.lan")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	addr := startTestDNSServer(t, rewriteHandler)
	r := New(addr, time.Second)
	ctx := context.Background()

	tests := []struct {
		domain   string
		expected string
		want     bool
	}{
		{"svc.lan", "10.0.0.2", true},
		{"svc.lan", "10.0.0.3", false},
		{"v6.lan", "fd00:0:0::2", true},
		{"web.lan", "SVC.lan", true},
		{"web.lan", "other.lan", false},
		{"missing.lan", "10.0.0.2", false},
	}

	for _, tt := range tests {
		t.Run(tt.domain+"/"+tt.expected, func(t *testing.T) {
			ok, err := r.Verify(ctx, tt.domain, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifyServerDown(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()
	require.NoError(t, pc.Close())

	r := New(addr, 200*time.Millisecond)
	_, err = r.Verify(context.Background(), "svc.lan", "10.0.0.2")
	assert.Error(t, err)
}
