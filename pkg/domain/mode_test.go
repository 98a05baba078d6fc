package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"dlbench/pkg/domain"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, m := range domain.Modes() {
		got, err := domain.ParseMode(string(m))
		require.NoError(t, err)
		require.Equal(t, m, got)
	}

	_, err := domain.ParseMode("parallel")
	require.Error(t, err)
	_, err = domain.ParseMode("")
	require.Error(t, err)
}

func TestNewRunResult(t *testing.T) {
	res := domain.NewRunResult(
		[][]byte{[]byte("abc"), {}, []byte("de")},
		domain.Timing{Real: 1500 * time.Millisecond, User: 250 * time.Millisecond, Sys: 0},
	)

	require.Equal(t, 3, res.Downloads)
	require.EqualValues(t, 5, res.Bytes)
	require.InDelta(t, 1.5, res.RealSeconds, 1e-9)
	require.InDelta(t, 0.25, res.UserSeconds, 1e-9)
	require.Zero(t, res.SysSeconds)
}

func TestRunID_Text(t *testing.T) {
	id, err := domain.ParseRunID("6f1c2b0e-6a0b-4d4a-9a53-0c2f0f5b9e11")
	require.NoError(t, err)
	require.Equal(t, "6f1c2b0e-6a0b-4d4a-9a53-0c2f0f5b9e11", id.String())

	b, err := json.Marshal(struct {
		ID domain.RunID `json:"id"`
	}{id})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"6f1c2b0e-6a0b-4d4a-9a53-0c2f0f5b9e11"}`, string(b))

	var back domain.RunID
	require.NoError(t, back.UnmarshalText([]byte(id.String())))
	require.Equal(t, id, back)

	_, err = domain.ParseRunID("not-a-uuid")
	require.Error(t, err)
	_, err = domain.ParseUserID("")
	require.Error(t, err)
}
