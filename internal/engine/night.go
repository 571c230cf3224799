package engine

import (
	"fmt"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/domain/role"
	"github.com/lunarfang/werewolf-arena/internal/game"
)

// PickEliminator chooses the wolf who answers for the pack tonight.
func (r *Resolver) PickEliminator(rd *game.Round) *player.Player {
	wolves := r.aliveWerewolves(rd)
	if len(wolves) == 0 {
		return nil
	}
	return wolves[r.st.Rand().Intn(len(wolves))]
}

// EliminateRequest asks a wolf for tonight's victim. Packmates are
// never legal targets.
func (r *Resolver) EliminateRequest(rd *game.Round, wolf *player.Player) *decider.Request {
	exclude := []string{wolf.Name}
	for _, w := range r.aliveWerewolves(rd) {
		if w.Name != wolf.Name {
			exclude = append(exclude, w.Name)
		}
	}
	return r.NewRequest(wolf, decider.ActionRemove, aliveExcept(rd, exclude...), true)
}

// ApplyEliminate records the pack's choice and tells every wolf.
func (r *Resolver) ApplyEliminate(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Eliminate = ptr(record(req.Player, dec))
	rd.Eliminated = dec.Value

	wolves := r.aliveWerewolves(rd)
	pronoun := "I"
	if len(wolves) > 1 {
		pronoun = "we"
	}
	for _, w := range wolves {
		w.AddObservation(fmt.Sprintf("During the night, %s decided to eliminate %s.", pronoun, dec.Value))
	}
	r.log.Event("ELIMINATE", req.Player, dec.Value)
	return nil
}

// ProtectRequest asks the guard for tonight's ward. Repeating last
// night's target is not legal.
func (r *Resolver) ProtectRequest(rd *game.Round, guard *player.Player) *decider.Request {
	return r.NewRequest(guard, decider.ActionProtect, aliveExcept(rd, guard.LastGuarded()), true)
}

// ApplyProtect records the guard's ward.
func (r *Resolver) ApplyProtect(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Protect = ptr(record(req.Player, dec))
	rd.Protected = dec.Value
	if guard := r.st.Player(req.Player); guard != nil {
		guard.AddObservation("I protected " + dec.Value)
		guard.RecordGuard(dec.Value)
	}
	r.log.Event("PROTECT", req.Player, dec.Value)
	return nil
}

// SaveOffered reports whether the witch gets the save offer tonight.
func (r *Resolver) SaveOffered(rd *game.Round) *player.Player {
	witch := r.aliveHolder(rd, role.Witch)
	if witch == nil || witch.HasSaved || rd.Eliminated == "" {
		return nil
	}
	return witch
}

// SaveRequest reveals the victim to the witch and asks yes or no.
func (r *Resolver) SaveRequest(rd *game.Round, witch *player.Player) *decider.Request {
	witch.AddObservation(fmt.Sprintf("During the night, werewolves decided to eliminate %s.", rd.Eliminated))
	return r.NewRequest(witch, decider.ActionSave, []string{"Yes", "No"}, false)
}

// ApplySave resolves the save offer. The antidote is spent only on a
// yes.
func (r *Resolver) ApplySave(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Save = ptr(record(req.Player, dec))
	witch := r.st.Player(req.Player)
	if dec.Value == "Yes" {
		rd.Saved = rd.Eliminated
		if witch != nil {
			witch.HasSaved = true
			witch.AddObservation(fmt.Sprintf("During the night, I chose to save %s. I ran out of my antidote.", rd.Saved))
		}
		r.log.Event("SAVE", req.Player, rd.Saved)
	} else {
		r.log.Event("SAVE", req.Player, "declined")
	}
	return nil
}

// PoisonOffered reports whether the witch gets the poison offer.
func (r *Resolver) PoisonOffered(rd *game.Round) *player.Player {
	witch := r.aliveHolder(rd, role.Witch)
	if witch == nil || witch.HasPoisoned {
		return nil
	}
	return witch
}

// PoisonRequest asks the witch for a poison target, or "No".
func (r *Resolver) PoisonRequest(rd *game.Round, witch *player.Player) *decider.Request {
	req := r.NewRequest(witch, decider.ActionPoison, aliveExcept(rd, witch.Name), true)
	req.Options = append(req.Options, "No")
	return req
}

// ApplyPoison resolves the poison offer. The vial is spent only on a
// target.
func (r *Resolver) ApplyPoison(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Poison = ptr(record(req.Player, dec))
	witch := r.st.Player(req.Player)
	if dec.Value != "No" {
		rd.Poisoned = dec.Value
		if witch != nil {
			witch.HasPoisoned = true
			witch.AddObservation("I poisoned " + dec.Value)
		}
		r.log.Event("POISON", req.Player, dec.Value)
	} else {
		if witch != nil {
			witch.AddObservation("I didn't poison anyone.")
		}
		r.log.Event("POISON", req.Player, "declined")
	}
	return nil
}

// InvestigateRequest asks the seer for tonight's target. Previously
// unmasked players are not legal again.
func (r *Resolver) InvestigateRequest(rd *game.Round, seer *player.Player) *decider.Request {
	exclude := []string{seer.Name}
	for name := range seer.Unmasked {
		exclude = append(exclude, name)
	}
	return r.NewRequest(seer, decider.ActionInvestigate, aliveExcept(rd, exclude...), true)
}

// ApplyInvestigate reveals the target's true role to the seer.
func (r *Resolver) ApplyInvestigate(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Investigate = ptr(record(req.Player, dec))
	rd.Unmasked = dec.Value

	seer := r.st.Player(req.Player)
	target := r.st.Player(dec.Value)
	if seer != nil && target != nil {
		seer.AddObservation(fmt.Sprintf(
			"During the night, I decided to investigate %s and learned they are a %s.",
			target.Name, target.Role))
		seer.RecordUnmask(target.Name, target.Role)
	}
	r.log.Event("INVESTIGATE", req.Player, dec.Value)
	return nil
}

// ResolveNight applies the night's choices: the wolves' victim dies
// unless warded or saved, and the poison target dies unconditionally.
func (r *Resolver) ResolveNight(rd *game.Round) {
	died := false
	if rd.Eliminated != "" && rd.Eliminated != rd.Protected && rd.Eliminated != rd.Saved {
		victim := rd.Eliminated
		r.kill(rd, victim)
		r.announce(rd, fmt.Sprintf("%s was removed from the game during the night.", victim))
		died = true
	}
	if rd.Poisoned != "" && rd.IsAlive(rd.Poisoned) {
		victim := rd.Poisoned
		r.kill(rd, victim)
		r.announce(rd, fmt.Sprintf("%s was removed from the game during the night.", victim))
		died = true
	}
	if !died {
		r.announce(rd, "No one was removed from the game during the night.")
	}
}

// NightShotPending reports whether the hunter died to the wolves
// tonight and still holds the shot. A poisoned hunter cannot shoot.
func (r *Resolver) NightShotPending(rd *game.Round) *player.Player {
	hunter := r.st.RoleHolder(role.Hunter)
	if hunter == nil {
		return nil
	}
	if rd.Eliminated != hunter.Name ||
		rd.Protected == hunter.Name ||
		rd.Saved == hunter.Name {
		return nil
	}
	if rd.Poisoned == hunter.Name {
		r.log.Info(hunter.Name + " is poisoned and cannot shoot.")
		return nil
	}
	return hunter
}

// DayShotPending reports whether the hunter was exiled today and still
// holds the shot.
func (r *Resolver) DayShotPending(rd *game.Round) *player.Player {
	hunter := r.st.RoleHolder(role.Hunter)
	if hunter == nil || rd.Exiled != hunter.Name || rd.Shot != "" {
		return nil
	}
	return hunter
}

// ShootRequest tells the hunter they are dead and asks for a target.
func (r *Resolver) ShootRequest(rd *game.Round, hunter *player.Player) *decider.Request {
	hunter.AddObservation("You were removed from the game. You can now shoot someone.")
	return r.NewRequest(hunter, decider.ActionShoot, aliveExcept(rd, hunter.Name), true)
}

// ApplyShoot resolves the hunter's shot: the target dies publicly.
func (r *Resolver) ApplyShoot(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Shoot = ptr(record(req.Player, dec))
	rd.Shot = dec.Value
	r.kill(rd, dec.Value)
	r.announce(rd, fmt.Sprintf("The Hunter %s removed %s from the game.", req.Player, dec.Value))
	return nil
}

func ptr(rec game.Record) *game.Record { return &rec }
