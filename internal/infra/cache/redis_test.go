package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

func TestVerdictCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := &VerdictCache{client: db}

	mock.ExpectGet(keyPrefix + "abc").SetVal(`{"risk_score":"High","scam_type":"Phishing","red_flags":["urgency"],"advice":"Delete it."}`)
	r, ok, err := c.Get(context.TODO(), "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, analysis.RiskHigh, r.RiskScore)
	assert.Equal(t, []string{"urgency"}, r.RedFlags)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestVerdictCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := &VerdictCache{client: db}

	mock.ExpectGet(keyPrefix + "abc").RedisNil()
	r, ok, err := c.Get(context.TODO(), "abc")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestVerdictCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := &VerdictCache{client: db}

	mock.ExpectGet(keyPrefix + "abc").SetErr(errors.New("redis error"))
	_, _, err := c.Get(context.TODO(), "abc")
	assert.ErrorContains(t, err, "redis get failure")
}

func TestVerdictCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := &VerdictCache{client: db}

	r := &analysis.Result{RiskScore: analysis.RiskLow, ScamType: "Safe", RedFlags: []string{}, Advice: "ok"}
	mock.ExpectSet(keyPrefix+"abc", `{"risk_score":"Low","scam_type":"Safe","red_flags":[],"advice":"ok"}`, time.Hour).SetVal("OK")
	assert.NoError(t, c.Set(context.TODO(), "abc", r, time.Hour))

	mock.ExpectSet(keyPrefix+"abc", `{"risk_score":"Low","scam_type":"Safe","red_flags":[],"advice":"ok"}`, time.Hour).SetErr(errors.New("redis error"))
	assert.ErrorContains(t, c.Set(context.TODO(), "abc", r, time.Hour), "redis set failure")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
