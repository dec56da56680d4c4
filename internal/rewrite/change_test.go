package rewrite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memMutator 内存实现，可对指定操作注入失败
type memMutator struct {
	entries  []Entry
	failAdd  map[string]bool // answer -> 添加失败
	failList bool
	calls    []string
}

func (m *memMutator) EntryExists(_ context.Context, domain, answer string) (bool, error) {
	m.calls = append(m.calls, "exists:"+answer)
	if m.failList {
		return false, fmt.Errorf("%w: boom", ErrUnavailable)
	}
	return Contains(m.entries, domain, answer), nil
}

func (m *memMutator) AddEntry(_ context.Context, domain, answer string) (bool, error) {
	m.calls = append(m.calls, "add:"+answer)
	if m.failAdd[answer] {
		return false, fmt.Errorf("%w: add refused", ErrUnavailable)
	}
	if Contains(m.entries, domain, answer) {
		return false, nil
	}
	m.entries = append(m.entries, Entry{Domain: domain, Answer: answer})
	return true, nil
}

func (m *memMutator) DeleteEntry(_ context.Context, domain, answer string) (bool, error) {
	m.calls = append(m.calls, "delete:"+answer)
	for i, e := range m.entries {
		if e.Domain == domain && e.Answer == answer {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func TestChangeAnswerReplaces(t *testing.T) {
	m := &memMutator{entries: []Entry{{"svc.lan", "10.0.0.2"}}}

	ok, err := ChangeAnswer(context.Background(), m, "svc.lan", "10.0.0.2", "10.0.0.1", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []Entry{{"svc.lan", "10.0.0.1"}}, m.entries)
	assert.Equal(t, []string{"exists:10.0.0.2", "delete:10.0.0.2", "add:10.0.0.1"}, m.calls)
}

func TestChangeAnswerOldMissing(t *testing.T) {
	m := &memMutator{entries: []Entry{{"svc.lan", "10.0.0.3"}}}

	ok, err := ChangeAnswer(context.Background(), m, "svc.lan", "10.0.0.2", "10.0.0.1", false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"exists:10.0.0.2"}, m.calls)
}

func TestChangeAnswerUnknown(t *testing.T) {
	m := &memMutator{failList: true}

	ok, err := ChangeAnswer(context.Background(), m, "svc.lan", "10.0.0.2", "10.0.0.1", false)
	assert.False(t, ok)
	assert.True(t, IsUnavailable(err))
}

func TestChangeAnswerAddFailsWithoutRollback(t *testing.T) {
	m := &memMutator{
		entries: []Entry{{"svc.lan", "10.0.0.2"}},
		failAdd: map[string]bool{"10.0.0.1": true},
	}

	ok, err := ChangeAnswer(context.Background(), m, "svc.lan", "10.0.0.2", "10.0.0.1", false)
	assert.False(t, ok)
	assert.True(t, IsUnavailable(err))
	assert.Empty(t, m.entries, "domain is left without entries")
}

func TestChangeAnswerAddFailsWithRollback(t *testing.T) {
	m := &memMutator{
		entries: []Entry{{"svc.lan", "10.0.0.2"}},
		failAdd: map[string]bool{"10.0.0.1": true},
	}

	ok, err := ChangeAnswer(context.Background(), m, "svc.lan", "10.0.0.2", "10.0.0.1", true)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, []Entry{{"svc.lan", "10.0.0.2"}}, m.entries, "old answer restored")
}

func TestFindAnswerAndContains(t *testing.T) {
	entries := []Entry{{"a.lan", "1.1.1.1"}, {"b.lan", "2.2.2.2"}, {"a.lan", "3.3.3.3"}}

	answer, ok := FindAnswer(entries, "a.lan")
	assert.True(t, ok)
	assert.Equal(t, "1.1.1.1", answer)

	_, ok = FindAnswer(entries, "c.lan")
	assert.False(t, ok)

	assert.True(t, Contains(entries, "a.lan", "3.3.3.3"))
	assert.False(t, Contains(entries, "b.lan", "3.3.3.3"))
}
