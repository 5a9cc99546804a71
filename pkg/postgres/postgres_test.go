package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		o := defaultPoolOptions()

		assert.Equal(t, 5*time.Minute, o.connMaxIdleTime)
		assert.Equal(t, 30*time.Minute, o.connMaxLifetime)
		assert.Equal(t, 5, o.maxIdleConns)
		assert.Equal(t, 25, o.maxOpenConns)
	})

	t.Run("overrides", func(t *testing.T) {
		o := defaultPoolOptions()
		for _, opt := range []Option{
			WithConnMaxIdleTime(time.Minute),
			WithConnMaxLifetime(time.Hour),
			WithMaxIdleConns(2),
			WithMaxOpenConns(10),
		} {
			opt(&o)
		}

		assert.Equal(t, time.Minute, o.connMaxIdleTime)
		assert.Equal(t, time.Hour, o.connMaxLifetime)
		assert.Equal(t, 2, o.maxIdleConns)
		assert.Equal(t, 10, o.maxOpenConns)
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		o := defaultPoolOptions()
		for _, opt := range []Option{
			WithConnMaxIdleTime(0),
			WithConnMaxLifetime(0),
			WithMaxIdleConns(0),
			WithMaxOpenConns(0),
		} {
			opt(&o)
		}

		assert.Equal(t, defaultPoolOptions(), o)
	})
}
