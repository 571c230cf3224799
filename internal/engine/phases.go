package engine

// Phase is one entry in a round's fixed phase sequence. The step
// scheduler holds a pointer into the sequence; phases whose actor is
// dead, absent, or exhausted skip themselves.
type Phase string

const (
	PhaseNewRound          Phase = "new_round"
	PhaseEliminate         Phase = "eliminate"
	PhaseProtect           Phase = "protect"
	PhaseSave              Phase = "save"
	PhasePoison            Phase = "poison"
	PhaseUnmask            Phase = "unmask"
	PhaseResolveNight      Phase = "resolve_night"
	PhaseWinnerNight       Phase = "check_winner_night"
	PhaseNightShot         Phase = "night_shot"
	PhaseWinnerNightShot   Phase = "check_winner_night_shot"
	PhaseBadgeFlowDawn     Phase = "badge_flow_dawn"
	PhaseRunForSheriff     Phase = "run_for_sheriff"
	PhaseCandidateSpeeches Phase = "candidate_speeches"
	PhaseElect             Phase = "elect"
	PhaseStatementOrder    Phase = "statement_order"
	PhaseDebate            Phase = "debate"
	PhasePseudoVote        Phase = "pseudo_vote"
	PhaseSheriffSummary    Phase = "sheriff_summary"
	PhaseVote              Phase = "vote"
	PhaseExile             Phase = "exile"
	PhaseWinnerExile       Phase = "check_winner_exile"
	PhaseDayShot           Phase = "day_shot"
	PhaseWinnerDayShot     Phase = "check_winner_day_shot"
	PhaseBadgeFlowDusk     Phase = "badge_flow_dusk"
	PhaseSummaries         Phase = "summaries"
	PhaseRoundComplete     Phase = "round_complete"
)

// sequence returns the phase order for one round. The sheriff
// sub-game phases are present only when the feature is on.
func sequence(sheriffEnabled bool) []Phase {
	if !sheriffEnabled {
		return []Phase{
			PhaseNewRound,
			PhaseEliminate,
			PhaseProtect,
			PhaseSave,
			PhasePoison,
			PhaseUnmask,
			PhaseResolveNight,
			PhaseWinnerNight,
			PhaseNightShot,
			PhaseWinnerNightShot,
			PhaseDebate,
			PhaseVote,
			PhaseExile,
			PhaseWinnerExile,
			PhaseDayShot,
			PhaseWinnerDayShot,
			PhaseSummaries,
			PhaseRoundComplete,
		}
	}
	return []Phase{
		PhaseNewRound,
		PhaseEliminate,
		PhaseProtect,
		PhaseSave,
		PhasePoison,
		PhaseUnmask,
		PhaseResolveNight,
		PhaseWinnerNight,
		PhaseNightShot,
		PhaseWinnerNightShot,
		PhaseBadgeFlowDawn,
		PhaseRunForSheriff,
		PhaseCandidateSpeeches,
		PhaseElect,
		PhaseStatementOrder,
		PhaseDebate,
		PhasePseudoVote,
		PhaseSheriffSummary,
		PhaseVote,
		PhaseExile,
		PhaseWinnerExile,
		PhaseDayShot,
		PhaseWinnerDayShot,
		PhaseBadgeFlowDusk,
		PhaseSummaries,
		PhaseRoundComplete,
	}
}
