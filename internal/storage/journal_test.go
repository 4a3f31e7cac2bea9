package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskd/pkg/model"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.sqlite3"), "kioskd_", nil)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)

	base := time.Now().Add(-time.Minute)
	for i, typ := range []string{model.EventNavigated, model.EventRewritten, model.EventLoadFailed} {
		j.Record(model.Event{
			Type:      typ,
			URL:       "http://umbrel.local/app",
			Timestamp: base.Add(time.Duration(i) * time.Second).UnixMilli(),
		})
	}

	recent := j.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, model.EventLoadFailed, recent[0].Type)
	assert.Equal(t, model.EventRewritten, recent[1].Type)
}

func TestJournalFillsMissingID(t *testing.T) {
	j := openTestJournal(t)

	j.Record(model.Event{Type: model.EventCrashed})
	recent := j.Recent(1)
	require.Len(t, recent, 1)
	assert.NotEmpty(t, recent[0].ID)
}

func TestJournalConsumeDrainsChannel(t *testing.T) {
	j := openTestJournal(t)

	ch := make(chan model.Event, 4)
	ch <- model.Event{Type: model.EventHang, Timestamp: time.Now().UnixMilli()}
	ch <- model.Event{Type: model.EventRecovered, Timestamp: time.Now().UnixMilli()}
	close(ch)

	j.Consume(ch)
	assert.Len(t, j.Recent(10), 2)
}
