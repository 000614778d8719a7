package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateEventParamsValidate(t *testing.T) {
	const (
		now = int64(1000)
		day = int64(24 * 60 * 60)
	)

	valid := CreateEventParams{
		Title:         "will it rain tomorrow",
		BetEndTime:    now + day,
		CommitEndTime: now + 2*day,
		RevealEndTime: now + 3*day,
	}
	assert.NoError(t, valid.Validate(now))

	short := valid
	short.Title = "too short"
	assert.Error(t, short.Validate(now))

	long := valid
	long.Title = strings.Repeat("x", 151)
	assert.Error(t, long.Validate(now))

	past := valid
	past.BetEndTime = now - 1
	assert.Error(t, past.Validate(now))

	unordered := valid
	unordered.CommitEndTime = unordered.RevealEndTime
	assert.Error(t, unordered.Validate(now))

	equalBetCommit := valid
	equalBetCommit.BetEndTime = equalBetCommit.CommitEndTime
	assert.Error(t, equalBetCommit.Validate(now))

	tightCommit := valid
	tightCommit.CommitEndTime = valid.BetEndTime + day - 1
	assert.Error(t, tightCommit.Validate(now))

	tightReveal := valid
	tightReveal.RevealEndTime = valid.CommitEndTime + day - 1
	assert.Error(t, tightReveal.Validate(now))
}
