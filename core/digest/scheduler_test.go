package digest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/tests"
)

func TestNewScheduler(t *testing.T) {
	logger := testutil.NewLogger()
	kinshasa, err := time.LoadLocation("Africa/Kinshasa")
	require.NoError(t, err)

	tests := []struct {
		name     string
		conf     core.DigestConfig
		from     time.Time
		wantNext time.Time
		wantErr  string
	}{
		{
			name:     "daily at midnight",
			conf:     core.DigestConfig{Schedule: "0 0 * * *", Timezone: "Africa/Kinshasa"},
			from:     time.Date(2021, 3, 4, 15, 30, 0, 0, kinshasa),
			wantNext: time.Date(2021, 3, 5, 0, 0, 0, 0, kinshasa),
		},
		{
			name:     "local",
			conf:     core.DigestConfig{Schedule: "30 9 * * 1", Timezone: "Local"},
			from:     time.Date(2021, 3, 4, 15, 30, 0, 0, time.Local),
			wantNext: time.Date(2021, 3, 8, 9, 30, 0, 0, time.Local),
		},
		{
			name:    "bad timezone",
			conf:    core.DigestConfig{Schedule: "0 0 * * *", Timezone: "Mars/Olympus"},
			wantErr: `loading digest timezone "Mars/Olympus"`,
		},
		{
			name:    "bad schedule",
			conf:    core.DigestConfig{Schedule: "every day"},
			wantErr: `parsing digest schedule "every day"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(New(nil, nil, tt.conf, logger), tt.conf, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			entries := s.cron.Entries()
			require.Len(t, entries, 1)
			assert.True(t, tt.wantNext.Equal(entries[0].Schedule.Next(tt.from)), "next run: %v", entries[0].Schedule.Next(tt.from))
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	logger := testutil.NewLogger()
	conf := core.DigestConfig{Schedule: "0 0 * * *"}
	s, err := NewScheduler(New(nil, nil, conf, logger), conf, logger)
	require.NoError(t, err)

	s.Start()
	assert.NoError(t, s.Stop(context.Background()))
}
