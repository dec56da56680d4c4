package failover

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewritefailover/internal/adguard"
	"rewritefailover/internal/adguard/adguardtest"
	"rewritefailover/internal/rewrite"
)

// fakeStore 记录每一次调用的内存存储
type fakeStore struct {
	mu          sync.Mutex
	entries     []rewrite.Entry
	calls       []string
	unavailable bool
}

func (f *fakeStore) record(format string, args ...interface{}) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	if f.unavailable {
		return fmt.Errorf("模拟故障: %w", rewrite.ErrUnavailable)
	}
	return nil
}

func (f *fakeStore) mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		switch c[:3] {
		case "add", "del", "chg":
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) TestConnection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("status")
}

func (f *fakeStore) EntryExists(ctx context.Context, domain, answer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("exists %s %s", domain, answer); err != nil {
		return false, err
	}
	return rewrite.Contains(f.entries, domain, answer), nil
}

func (f *fakeStore) DomainExists(ctx context.Context, domain string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("domain %s", domain); err != nil {
		return false, err
	}
	_, found := rewrite.FindAnswer(f.entries, domain)
	return found, nil
}

func (f *fakeStore) GetAnswerOfDomain(ctx context.Context, domain string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get %s", domain); err != nil {
		return "", false, err
	}
	answer, found := rewrite.FindAnswer(f.entries, domain)
	return answer, found, nil
}

func (f *fakeStore) AddEntry(ctx context.Context, domain, answer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("add %s %s", domain, answer); err != nil {
		return false, err
	}
	if rewrite.Contains(f.entries, domain, answer) {
		return false, nil
	}
	f.entries = append(f.entries, rewrite.Entry{Domain: domain, Answer: answer})
	return true, nil
}

func (f *fakeStore) DeleteEntry(ctx context.Context, domain, answer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("del %s %s", domain, answer); err != nil {
		return false, err
	}
	for i, e := range f.entries {
		if e.Domain == domain && e.Answer == answer {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ChangeAnswer(ctx context.Context, domain, oldAnswer, newAnswer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("chg %s %s %s", domain, oldAnswer, newAnswer); err != nil {
		return false, err
	}
	for i, e := range f.entries {
		if e.Domain == domain && e.Answer == oldAnswer {
			f.entries[i].Answer = newAnswer
			return true, nil
		}
	}
	return false, nil
}

type fakeVerifier struct {
	calls []string
}

func (v *fakeVerifier) Verify(ctx context.Context, domain, expected string) (bool, error) {
	v.calls = append(v.calls, domain+"="+expected)
	return true, nil
}

func TestApplyOrderedFailover(t *testing.T) {
	candidates := []string{"A", "B", "C"}

	tests := []struct {
		name      string
		healthy   []bool
		wantMuts  []string
		wantOut   Action
		wantChose string
	}{
		{"第一个健康的胜出", []bool{false, true, true}, []string{"add svc.lan B"}, ActionAdd, "B"},
		{"全部健康选主记录", []bool{true, true, true}, []string{"add svc.lan A"}, ActionAdd, "A"},
		{"全部不健康不变更", []bool{false, false, false}, nil, ActionNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			s := NewSwitcher(store)

			out := s.Apply(context.Background(), "svc.lan", candidates, tt.healthy)
			assert.Equal(t, tt.wantOut, out.Action)
			assert.Equal(t, tt.wantChose, out.Chosen)
			assert.Equal(t, tt.wantMuts, store.mutations())
		})
	}
}

func TestApplyAllUnhealthyDoesNotReadRemote(t *testing.T) {
	store := &fakeStore{}
	s := NewSwitcher(store)

	s.Apply(context.Background(), "svc.lan", []string{"A", "B"}, []bool{false, false})
	assert.Empty(t, store.calls)
}

func TestApplyConverged(t *testing.T) {
	store := &fakeStore{entries: []rewrite.Entry{{Domain: "svc.lan", Answer: "A"}}}
	s := NewSwitcher(store)

	for i := 0; i < 3; i++ {
		out := s.Apply(context.Background(), "svc.lan", []string{"A", "B"}, []bool{true, true})
		assert.Equal(t, ActionNone, out.Action)
		assert.Equal(t, "A", out.Active())
	}
	assert.Empty(t, store.mutations())
}

func TestApplyReplace(t *testing.T) {
	store := &fakeStore{entries: []rewrite.Entry{{Domain: "svc.lan", Answer: "X"}}}
	s := NewSwitcher(store)

	out := s.Apply(context.Background(), "svc.lan", []string{"X", "Y"}, []bool{false, true})
	assert.Equal(t, ActionChange, out.Action)
	assert.True(t, out.Applied)
	assert.Equal(t, "X", out.Previous)
	assert.Equal(t, "Y", out.Active())
	assert.Equal(t, []string{"chg svc.lan X Y"}, store.mutations())
	assert.Equal(t, []rewrite.Entry{{Domain: "svc.lan", Answer: "Y"}}, store.entries)
}

func TestApplySingleCandidateIgnoresHealth(t *testing.T) {
	store := &fakeStore{}
	s := NewSwitcher(store)

	out := s.Apply(context.Background(), "svc.lan", []string{"A"}, []bool{false})
	assert.Equal(t, ActionAdd, out.Action)
	assert.Equal(t, []string{"add svc.lan A"}, store.mutations())
}

func TestApplyUnknownSkipsTick(t *testing.T) {
	store := &fakeStore{unavailable: true}
	s := NewSwitcher(store)

	out := s.Apply(context.Background(), "svc.lan", []string{"A", "B"}, []bool{true, true})
	assert.Equal(t, ActionSkip, out.Action)
	assert.True(t, rewrite.IsUnavailable(out.Err))
	assert.Equal(t, []string{"get svc.lan"}, store.calls)
}

func TestApplyVerifiesAfterMutation(t *testing.T) {
	store := &fakeStore{}
	v := &fakeVerifier{}
	s := NewSwitcher(store, WithVerifier(v))

	s.Apply(context.Background(), "svc.lan", []string{"A"}, []bool{true})
	s.Apply(context.Background(), "svc.lan", []string{"A"}, []bool{true})
	assert.Equal(t, []string{"svc.lan=A"}, v.calls)
}

func TestEnsureEntry(t *testing.T) {
	store := &fakeStore{}
	s := NewSwitcher(store)
	ctx := context.Background()

	out := s.EnsureEntry(ctx, "nas.lan", "10.0.0.9")
	assert.Equal(t, ActionAdd, out.Action)
	assert.True(t, out.Applied)

	for i := 0; i < 3; i++ {
		out = s.EnsureEntry(ctx, "nas.lan", "10.0.0.9")
		assert.Equal(t, ActionNone, out.Action)
	}
	assert.Equal(t, []string{"add nas.lan 10.0.0.9"}, store.mutations())

	store.unavailable = true
	out = s.EnsureEntry(ctx, "nas.lan", "10.0.0.9")
	assert.Equal(t, ActionSkip, out.Action)
}

func TestEnsureEntryNeverDeletesOtherAnswers(t *testing.T) {
	store := &fakeStore{entries: []rewrite.Entry{{Domain: "nas.lan", Answer: "10.0.0.1"}}}
	s := NewSwitcher(store)

	s.EnsureEntry(context.Background(), "nas.lan", "10.0.0.9")
	assert.Equal(t, []string{"add nas.lan 10.0.0.9"}, store.mutations())
	assert.Len(t, store.entries, 2)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "add", ActionAdd.String())
	assert.Equal(t, "change", ActionChange.String())
	assert.Equal(t, "action(9)", Action(9).String())
}

// 主记录故障 → 切到备用 → 保持 → 主记录恢复后切回
func TestSwitcherAgainstAdGuard(t *testing.T) {
	srv := adguardtest.NewServer("admin", "secret")
	defer srv.Close()

	host, port := srv.HostPort()
	client := adguard.NewClient(adguard.Options{
		Proto:    "http",
		Host:     host,
		Port:     port,
		Username: "admin",
		Password: "secret",
		Timeout:  2 * time.Second,
	})
	s := NewSwitcher(client)
	ctx := context.Background()
	candidates := []string{"10.0.0.1", "10.0.0.2"}

	out := s.Apply(ctx, "svc.lan", candidates, []bool{false, true})
	require.NoError(t, out.Err)
	assert.Equal(t, ActionAdd, out.Action)
	assert.Equal(t, []rewrite.Entry{{Domain: "svc.lan", Answer: "10.0.0.2"}}, srv.Adds())

	out = s.Apply(ctx, "svc.lan", candidates, []bool{false, true})
	require.NoError(t, out.Err)
	assert.Equal(t, ActionNone, out.Action)
	assert.Len(t, srv.Adds(), 1)
	assert.Empty(t, srv.Deletes())

	out = s.Apply(ctx, "svc.lan", candidates, []bool{true, true})
	require.NoError(t, out.Err)
	assert.Equal(t, ActionChange, out.Action)
	assert.True(t, out.Applied)
	assert.Equal(t, []rewrite.Entry{{Domain: "svc.lan", Answer: "10.0.0.2"}}, srv.Deletes())
	assert.Equal(t, []rewrite.Entry{{Domain: "svc.lan", Answer: "10.0.0.1"}}, srv.Entries())
}
