package state

import (
	"testing"

	"video-wizard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DispatchAndSnapshot(t *testing.T) {
	s := NewStore(NewProject())
	got := s.Dispatch(ScriptChanged{Text: "hello"})
	assert.Equal(t, "hello", got.Script)
	assert.Equal(t, "hello", s.Snapshot().Script)
}

func TestStore_SubscribeGetsLatest(t *testing.T) {
	s := NewStore(NewProject())
	ch, cancel := s.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Equal(t, models.StepUpload, initial.Step)

	s.Dispatch(StepChanged{Step: models.StepMusic})
	s.Dispatch(StepChanged{Step: models.StepExport})

	latest := <-ch
	assert.Equal(t, models.StepExport, latest.Step)

	select {
	case p := <-ch:
		t.Fatalf("unexpected extra snapshot %v", p.Step)
	default:
	}
}

func TestStore_CancelClosesChannel(t *testing.T) {
	s := NewStore(NewProject())
	ch, cancel := s.Subscribe()
	<-ch

	cancel()
	cancel()
	_, ok := <-ch
	require.False(t, ok)

	s.Dispatch(ScriptChanged{Text: "after"})
}
