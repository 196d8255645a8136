package models

import "time"

// BordereauStatut enumerates the lifecycle states of a bordereau.
type BordereauStatut string

// Main path states, in processing order. CLOTURE is terminal.
const (
	StatutEnAttente       BordereauStatut = "EN_ATTENTE"
	StatutAScanner        BordereauStatut = "A_SCANNER"
	StatutScanEnCours     BordereauStatut = "SCAN_EN_COURS"
	StatutScanne          BordereauStatut = "SCANNE"
	StatutAAffecter       BordereauStatut = "A_AFFECTER"
	StatutAssigne         BordereauStatut = "ASSIGNE"
	StatutEnCours         BordereauStatut = "EN_COURS"
	StatutTraite          BordereauStatut = "TRAITE"
	StatutPretVirement    BordereauStatut = "PRET_VIREMENT"
	StatutVirementEnCours BordereauStatut = "VIREMENT_EN_COURS"
	StatutVirementExecute BordereauStatut = "VIREMENT_EXECUTE"
	StatutCloture         BordereauStatut = "CLOTURE"
)

// Side branches. They re-enter the main path on correction.
const (
	StatutVirementRejete BordereauStatut = "VIREMENT_REJETE"
	StatutEnDifficulte   BordereauStatut = "EN_DIFFICULTE"
	StatutPartiel        BordereauStatut = "PARTIEL"
)

// AllStatuts lists every legal statut value.
var AllStatuts = []BordereauStatut{
	StatutEnAttente, StatutAScanner, StatutScanEnCours, StatutScanne,
	StatutAAffecter, StatutAssigne, StatutEnCours, StatutTraite,
	StatutPretVirement, StatutVirementEnCours, StatutVirementExecute,
	StatutCloture, StatutVirementRejete, StatutEnDifficulte, StatutPartiel,
}

// Valid reports whether s is a member of the statut enum.
func (s BordereauStatut) Valid() bool {
	for _, known := range AllStatuts {
		if s == known {
			return true
		}
	}
	return false
}

// LifecycleEvent identifies a transition trigger.
type LifecycleEvent string

const (
	EventStartScan         LifecycleEvent = "START_SCAN"
	EventCompleteScan      LifecycleEvent = "COMPLETE_SCAN"
	EventAssign            LifecycleEvent = "ASSIGN"
	EventProcess           LifecycleEvent = "PROCESS"
	EventInitiatePayment   LifecycleEvent = "INITIATE_PAYMENT"
	EventExecutePayment    LifecycleEvent = "EXECUTE_PAYMENT"
	EventClose             LifecycleEvent = "CLOSE"
	EventReject            LifecycleEvent = "REJECT"
	EventRecuperer         LifecycleEvent = "RECUPERER"
	EventHandlePersonally  LifecycleEvent = "HANDLE_PERSONALLY"
	EventRejectPayment     LifecycleEvent = "REJECT_PAYMENT"
	EventRetryPayment      LifecycleEvent = "RETRY_PAYMENT"
	EventMarkDifficulte    LifecycleEvent = "MARK_DIFFICULTE"
	EventResolveDifficulte LifecycleEvent = "RESOLVE_DIFFICULTE"
	EventMarkPartiel       LifecycleEvent = "MARK_PARTIEL"
	EventResumePartiel     LifecycleEvent = "RESUME_PARTIEL"
)

// ReturnDestination names where a rejected bordereau is sent back to.
type ReturnDestination string

const (
	ReturnToBO   ReturnDestination = "BO"
	ReturnToScan ReturnDestination = "SCAN"
)

// transitionRule describes the legal sources and target of an event.
// Events whose documented behaviour auto-chains through intermediate
// states carry the chain's final state as target: the intermediate
// state is never persisted.
type transitionRule struct {
	sources []BordereauStatut
	target  BordereauStatut
}

var transitionTable = map[LifecycleEvent]transitionRule{
	EventStartScan:        {sources: []BordereauStatut{StatutAScanner}, target: StatutScanEnCours},
	EventCompleteScan:     {sources: []BordereauStatut{StatutScanEnCours}, target: StatutAAffecter},
	EventAssign:           {sources: []BordereauStatut{StatutAAffecter}, target: StatutEnCours},
	EventHandlePersonally: {sources: []BordereauStatut{StatutAAffecter}, target: StatutEnCours},
	EventProcess:          {sources: []BordereauStatut{StatutEnCours}, target: StatutPretVirement},
	EventInitiatePayment:  {sources: []BordereauStatut{StatutPretVirement}, target: StatutVirementEnCours},
	EventExecutePayment:   {sources: []BordereauStatut{StatutVirementEnCours}, target: StatutVirementExecute},
	EventClose:            {sources: []BordereauStatut{StatutVirementExecute}, target: StatutCloture},

	EventRecuperer: {sources: []BordereauStatut{StatutAssigne, StatutEnCours, StatutEnDifficulte, StatutPartiel}, target: StatutAAffecter},

	EventRejectPayment:     {sources: []BordereauStatut{StatutVirementEnCours}, target: StatutVirementRejete},
	EventRetryPayment:      {sources: []BordereauStatut{StatutVirementRejete}, target: StatutPretVirement},
	EventMarkDifficulte:    {sources: []BordereauStatut{StatutEnCours}, target: StatutEnDifficulte},
	EventResolveDifficulte: {sources: []BordereauStatut{StatutEnDifficulte}, target: StatutEnCours},
	EventMarkPartiel:       {sources: []BordereauStatut{StatutEnCours, StatutTraite}, target: StatutPartiel},
	EventResumePartiel:     {sources: []BordereauStatut{StatutPartiel}, target: StatutEnCours},
}

// handlerHeldStatuts are the states in which a gestionnaire owns the
// bordereau; rejection back to intake or scan is only legal from these.
var handlerHeldStatuts = map[BordereauStatut]struct{}{
	StatutAssigne:      {},
	StatutEnCours:      {},
	StatutEnDifficulte: {},
	StatutPartiel:      {},
}

// IsHandlerHeld reports whether the statut is owned by a gestionnaire.
func (s BordereauStatut) IsHandlerHeld() bool {
	_, ok := handlerHeldStatuts[s]
	return ok
}

// processedStatuts are counted as "traités" in corbeille views: every
// state at or past TRAITE on the main path.
var processedStatuts = map[BordereauStatut]struct{}{
	StatutTraite:          {},
	StatutPretVirement:    {},
	StatutVirementEnCours: {},
	StatutVirementExecute: {},
	StatutCloture:         {},
}

// IsProcessed reports whether the statut belongs to the traités bucket.
func (s BordereauStatut) IsProcessed() bool {
	_, ok := processedStatuts[s]
	return ok
}

// IsTerminal reports whether no further transition is legal.
func (s BordereauStatut) IsTerminal() bool {
	return s == StatutCloture
}

// NextStatut resolves the target statut for an event applied from the
// given state. The second return value is false when the event is not
// legal from that state; callers translate that into ILLEGAL_TRANSITION.
func NextStatut(current BordereauStatut, event LifecycleEvent) (BordereauStatut, bool) {
	if event == EventReject {
		// Resolved by the caller via RejectTarget; sources are the
		// handler-held states.
		if current.IsHandlerHeld() {
			return StatutAScanner, true
		}
		return "", false
	}
	rule, ok := transitionTable[event]
	if !ok {
		return "", false
	}
	for _, src := range rule.sources {
		if src == current {
			return rule.target, true
		}
	}
	return "", false
}

// RejectTarget maps a return destination to the statut a rejected
// bordereau lands on.
func RejectTarget(dest ReturnDestination) (BordereauStatut, bool) {
	switch dest {
	case ReturnToScan:
		return StatutAScanner, true
	case ReturnToBO:
		return StatutEnAttente, true
	default:
		return "", false
	}
}

// Bordereau is a batch of claim documents received from one client. It
// is the unit of workflow tracking: created by BO intake, scanned,
// triaged by the chef d'équipe, processed by a gestionnaire, then paid.
type Bordereau struct {
	ID               string          `db:"id" json:"id"`
	Reference        string          `db:"reference" json:"reference"`
	ClientID         string          `db:"client_id" json:"client_id"`
	DateReception    time.Time       `db:"date_reception" json:"date_reception"`
	NombreBS         int             `db:"nombre_bs" json:"nombre_bs"`
	DelaiReglement   int             `db:"delai_reglement" json:"delai_reglement"`
	Statut           BordereauStatut `db:"statut" json:"statut"`
	DateFinScan      *time.Time      `db:"date_fin_scan" json:"date_fin_scan,omitempty"`
	AssignedToUserID *string         `db:"assigned_to_user_id" json:"assigned_to_user_id,omitempty"`
	CurrentHandlerID *string         `db:"current_handler_id" json:"current_handler_id,omitempty"`
	TeamID           *string         `db:"team_id" json:"team_id,omitempty"`
	Archived         bool            `db:"archived" json:"archived"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// BordereauFilter constrains listing queries.
type BordereauFilter struct {
	Statuts   []BordereauStatut
	ClientID  string
	HandlerID string
	TeamID    string
	Archived  *bool
	Limit     int
	Offset    int
}
