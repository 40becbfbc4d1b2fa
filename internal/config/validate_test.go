package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(id string, needs ...string) *JobTemplate {
	return &JobTemplate{ID: id, Needs: needs}
}

func TestValidate(t *testing.T) {
	t.Run("valid graph passes and indexes templates", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("a"), job("b", "a"), job("c", "a", "b")}}
		require.NoError(t, m.Validate())

		assert.Equal(t, 0, m.Jobs[0].Index)
		assert.Equal(t, 2, m.Jobs[2].Index)

		got, ok := m.Template("b")
		require.True(t, ok)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("")}}
		assert.ErrorContains(t, m.Validate(), "empty id")
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("a"), job("a")}}
		assert.ErrorContains(t, m.Validate(), `duplicate job id "a"`)
	})

	t.Run("unknown needs reference is rejected", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("a", "ghost")}}
		err := m.Validate()

		var refErr *UnknownJobReferenceError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, "a", refErr.JobID)
		assert.Equal(t, "ghost", refErr.Ref)
	})

	t.Run("self reference is reported as a cycle", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("a", "a")}}
		var cycErr *CyclicDependencyError
		require.ErrorAs(t, m.Validate(), &cycErr)
		assert.Equal(t, []string{"a", "a"}, cycErr.Cycle)
	})

	t.Run("longer cycle reports its members", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("a", "c"), job("b", "a"), job("c", "b")}}
		err := m.Validate()

		var cycErr *CyclicDependencyError
		require.ErrorAs(t, err, &cycErr)
		require.GreaterOrEqual(t, len(cycErr.Cycle), 4)
		assert.Equal(t, cycErr.Cycle[0], cycErr.Cycle[len(cycErr.Cycle)-1])
		assert.ElementsMatch(t, []string{"a", "b", "c"}, cycErr.Cycle[:3])
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		m := &Model{Jobs: []*JobTemplate{job("a"), job("b", "a"), job("c", "a"), job("d", "b", "c")}}
		assert.NoError(t, m.Validate())
	})
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `job "a" needs undeclared job "x"`,
		(&UnknownJobReferenceError{JobID: "a", Ref: "x"}).Error())
	assert.Equal(t, "cyclic job dependency: a -> b -> a",
		(&CyclicDependencyError{Cycle: []string{"a", "b", "a"}}).Error())

	inner := errors.New("boom")
	perr := &ParseError{Path: "ci.hcl", Err: inner}
	assert.ErrorContains(t, perr, "ci.hcl")
	assert.ErrorIs(t, perr, inner)
}
