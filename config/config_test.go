package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SUB_EVENT_POLICY", "")

	conf, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, "4000", conf.Port)
	assert.Equal(t, "inr", conf.Currency)
	assert.Equal(t, 10, conf.MaxTicketsPerOrder)
	assert.Equal(t, 5*time.Minute, conf.CacheTTL)
	assert.Equal(t, PolicyCascade, conf.SubEventPolicy)
	assert.Equal(t, DriverMongo, conf.StoreDriver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("SUB_EVENT_POLICY", "promote")
	t.Setenv("MAX_TICKETS_PER_ORDER", "4")
	t.Setenv("SERVER_URL", "https://events.example.edu/")

	conf, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, conf.StoreDriver)
	assert.Equal(t, PolicyPromote, conf.SubEventPolicy)
	assert.Equal(t, 4, conf.MaxTicketsPerOrder)
	assert.Equal(t, "https://events.example.edu", conf.ServerURL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}
