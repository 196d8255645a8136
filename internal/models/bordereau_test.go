package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatutMainPath(t *testing.T) {
	steps := []struct {
		from  BordereauStatut
		event LifecycleEvent
		want  BordereauStatut
	}{
		{StatutAScanner, EventStartScan, StatutScanEnCours},
		{StatutScanEnCours, EventCompleteScan, StatutAAffecter},
		{StatutAAffecter, EventAssign, StatutEnCours},
		{StatutEnCours, EventProcess, StatutPretVirement},
		{StatutPretVirement, EventInitiatePayment, StatutVirementEnCours},
		{StatutVirementEnCours, EventExecutePayment, StatutVirementExecute},
		{StatutVirementExecute, EventClose, StatutCloture},
	}
	for _, step := range steps {
		got, ok := NextStatut(step.from, step.event)
		assert.True(t, ok, "event %s from %s should be legal", step.event, step.from)
		assert.Equal(t, step.want, got)
	}
}

func TestNextStatutAutoChainSkipsIntermediate(t *testing.T) {
	// Completing the scan never leaves the bordereau parked at SCANNE,
	// and assignment never persists ASSIGNE.
	got, ok := NextStatut(StatutScanEnCours, EventCompleteScan)
	assert.True(t, ok)
	assert.Equal(t, StatutAAffecter, got)

	got, ok = NextStatut(StatutAAffecter, EventAssign)
	assert.True(t, ok)
	assert.Equal(t, StatutEnCours, got)
}

func TestNextStatutIllegal(t *testing.T) {
	_, ok := NextStatut(StatutAScanner, EventCompleteScan)
	assert.False(t, ok)

	_, ok = NextStatut(StatutCloture, EventStartScan)
	assert.False(t, ok)

	_, ok = NextStatut(StatutEnAttente, EventAssign)
	assert.False(t, ok)
}

func TestNextStatutSideBranches(t *testing.T) {
	got, ok := NextStatut(StatutVirementEnCours, EventRejectPayment)
	assert.True(t, ok)
	assert.Equal(t, StatutVirementRejete, got)

	got, ok = NextStatut(StatutVirementRejete, EventRetryPayment)
	assert.True(t, ok)
	assert.Equal(t, StatutPretVirement, got)

	got, ok = NextStatut(StatutEnCours, EventMarkDifficulte)
	assert.True(t, ok)
	assert.Equal(t, StatutEnDifficulte, got)

	got, ok = NextStatut(StatutEnDifficulte, EventResolveDifficulte)
	assert.True(t, ok)
	assert.Equal(t, StatutEnCours, got)
}

func TestNextStatutRecuperer(t *testing.T) {
	for _, from := range []BordereauStatut{StatutAssigne, StatutEnCours, StatutEnDifficulte, StatutPartiel} {
		got, ok := NextStatut(from, EventRecuperer)
		assert.True(t, ok, "recuperer from %s", from)
		assert.Equal(t, StatutAAffecter, got)
	}
	_, ok := NextStatut(StatutAScanner, EventRecuperer)
	assert.False(t, ok)
}

func TestRejectTarget(t *testing.T) {
	got, ok := RejectTarget(ReturnToScan)
	assert.True(t, ok)
	assert.Equal(t, StatutAScanner, got)

	got, ok = RejectTarget(ReturnToBO)
	assert.True(t, ok)
	assert.Equal(t, StatutEnAttente, got)

	_, ok = RejectTarget(ReturnDestination("ELSEWHERE"))
	assert.False(t, ok)
}

func TestHandlerHeldAndProcessed(t *testing.T) {
	assert.True(t, StatutEnCours.IsHandlerHeld())
	assert.True(t, StatutPartiel.IsHandlerHeld())
	assert.False(t, StatutAAffecter.IsHandlerHeld())

	assert.True(t, StatutTraite.IsProcessed())
	assert.True(t, StatutCloture.IsProcessed())
	assert.False(t, StatutEnCours.IsProcessed())

	assert.True(t, StatutCloture.IsTerminal())
	assert.False(t, StatutVirementExecute.IsTerminal())
}

func TestStatutValid(t *testing.T) {
	for _, s := range AllStatuts {
		assert.True(t, s.Valid())
	}
	assert.False(t, BordereauStatut("BOGUS").Valid())
}
