package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/reply"
)

var (
	organizers = domain.Users{"lead"}
	raidSlots  = domain.Slots{{Role: "tank", Capacity: 1}, {Role: "dps", Capacity: 2}}
	defaultCfg = domain.DefaultConfiguration()
)

func at(second int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, second, 0, time.UTC)
}

func openRound(t *testing.T, display domain.MessageID) Session {
	t.Helper()
	s, _ := Inactive(at(0)).Apply(organizers, defaultCfg, "lead", "open-msg",
		[]command.Command{command.Open{Slots: raidSlots, DisplayID: display}}, at(1))
	if s.Status != StatusActive {
		t.Fatalf("session status = %d, want active", s.Status)
	}
	return s
}

func TestApply_OpenByOrganizerActivatesWithEmptyTeamDisplay(t *testing.T) {
	s, replies := Inactive(at(0)).Apply(organizers, defaultCfg, "lead", "open-msg",
		[]command.Command{command.Open{Slots: raidSlots, DisplayID: "display"}}, at(1))

	if s.Status != StatusActive {
		t.Fatalf("status = %d, want active", s.Status)
	}
	if s.Organizer != "lead" {
		t.Fatalf("organizer = %s, want lead", s.Organizer)
	}
	if s.OpenMessageID != "open-msg" {
		t.Fatalf("open message = %s, want open-msg", s.OpenMessageID)
	}
	if !reflect.DeepEqual(s.Slots, raidSlots) {
		t.Fatalf("slots = %v, want %v", s.Slots, raidSlots)
	}
	if s.Ledger.Len() != 0 {
		t.Fatalf("ledger length = %d, want 0", s.Ledger.Len())
	}
	// The open prelude initializes the display and the continue pass
	// re-renders it, so two updates land on the same message.
	if len(replies) != 2 {
		t.Fatalf("replies = %d, want 2", len(replies))
	}
	for i, r := range replies {
		update, ok := r.(reply.UpdateTeams)
		if !ok {
			t.Fatalf("reply %d = %T, want UpdateTeams", i, r)
		}
		if update.DisplayID != "display" {
			t.Fatalf("reply %d display = %s, want display", i, update.DisplayID)
		}
		if len(update.Teams) != 1 || update.Teams[0].FilledCount() != 0 {
			t.Fatalf("reply %d teams = %v, want one empty team", i, update.Teams)
		}
	}
}

func TestApply_OpenWithoutDisplayEmitsNoReplies(t *testing.T) {
	s, replies := Inactive(at(0)).Apply(organizers, defaultCfg, "lead", "open-msg",
		[]command.Command{command.Open{Slots: raidSlots}}, at(1))
	if s.Status != StatusActive {
		t.Fatalf("status = %d, want active", s.Status)
	}
	if len(replies) != 0 {
		t.Fatalf("replies = %d, want 0", len(replies))
	}
}

func TestApply_NonOrganizerOpenLeavesInactiveWithZeroReplies(t *testing.T) {
	s, replies := Inactive(at(0)).Apply(organizers, defaultCfg, "ana", "msg",
		[]command.Command{command.Open{Slots: raidSlots, DisplayID: "display"}}, at(1))

	if s.Status != StatusInactive {
		t.Fatalf("status = %d, want inactive", s.Status)
	}
	if len(replies) != 0 {
		t.Fatalf("replies = %d, want 0", len(replies))
	}
}

func TestApply_HelpInPrefixYieldsUsageEvenWithoutOpen(t *testing.T) {
	_, replies := Inactive(at(0)).Apply(organizers, defaultCfg, "ana", "msg",
		[]command.Command{command.Help{}}, at(1))
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	if _, ok := replies[0].(reply.Usage); !ok {
		t.Fatalf("reply = %T, want Usage", replies[0])
	}
}

func TestApply_HelpIgnoredWhenNoOrganizersConfigured(t *testing.T) {
	_, replies := Inactive(at(0)).Apply(nil, defaultCfg, "ana", "msg",
		[]command.Command{command.Help{}}, at(1))
	if len(replies) != 0 {
		t.Fatalf("replies = %d, want 0; brigade is disabled without organizers", len(replies))
	}
}

func TestApply_VolunteerGrowsLedgerAndUpdatesDisplay(t *testing.T) {
	s := openRound(t, "display")

	s, replies := s.Apply(organizers, defaultCfg, "ana", "msg-2",
		[]command.Command{command.Volunteer{Role: "dps"}}, at(2))

	if s.Ledger.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1", s.Ledger.Len())
	}
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	update, ok := replies[0].(reply.UpdateTeams)
	if !ok {
		t.Fatalf("reply = %T, want UpdateTeams", replies[0])
	}
	if got := update.Teams[0].Members["dps"]; len(got) != 1 || got[0] != "ana" {
		t.Fatalf("dps members = %v, want [ana]", got)
	}
}

func TestApply_MutationWithoutDisplayEmitsNoUpdate(t *testing.T) {
	s := openRound(t, "")
	s, replies := s.Apply(organizers, defaultCfg, "ana", "msg-2",
		[]command.Command{command.Volunteer{Role: "dps"}}, at(2))
	if s.Ledger.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1", s.Ledger.Len())
	}
	if len(replies) != 0 {
		t.Fatalf("replies = %d, want 0", len(replies))
	}
}

func TestApply_CloseFinalizesFullTeamsOnly(t *testing.T) {
	s := openRound(t, "display")
	s, _ = s.Apply(organizers, defaultCfg, "ana", "m2", []command.Command{command.Volunteer{Role: "tank"}}, at(2))
	s, _ = s.Apply(organizers, defaultCfg, "bo", "m3", []command.Command{command.Volunteer{Role: "dps"}}, at(3))
	s, _ = s.Apply(organizers, defaultCfg, "cy", "m4", []command.Command{command.Volunteer{Role: "dps"}}, at(4))
	// A fourth volunteer overflows into a second, incomplete team.
	s, _ = s.Apply(organizers, defaultCfg, "di", "m5", []command.Command{command.Volunteer{Role: "dps"}}, at(5))

	s, replies := s.Apply(organizers, defaultCfg, "lead", "m6", []command.Command{command.Close{}}, at(6))

	if s.Status != StatusInactive {
		t.Fatalf("status = %d, want inactive", s.Status)
	}
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	finalized, ok := replies[0].(reply.FinalizeTeams)
	if !ok {
		t.Fatalf("reply = %T, want FinalizeTeams", replies[0])
	}
	if len(finalized.Teams) != 1 {
		t.Fatalf("finalized teams = %d, want 1; incomplete team must be dropped", len(finalized.Teams))
	}
	if finalized.Teams[0].FilledCount() != raidSlots.TotalCapacity() {
		t.Fatalf("finalized team filled = %d, want %d", finalized.Teams[0].FilledCount(), raidSlots.TotalCapacity())
	}
}

func TestApply_AbortAbandonsDisplayWithoutFinalize(t *testing.T) {
	s := openRound(t, "display")
	s, _ = s.Apply(organizers, defaultCfg, "ana", "m2", []command.Command{command.Volunteer{Role: "dps"}}, at(2))

	s, replies := s.Apply(organizers, defaultCfg, "lead", "m3", []command.Command{command.Abort{}}, at(3))

	if s.Status != StatusInactive {
		t.Fatalf("status = %d, want inactive", s.Status)
	}
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	abandoned, ok := replies[0].(reply.AbandonTeams)
	if !ok {
		t.Fatalf("reply = %T, want AbandonTeams", replies[0])
	}
	if abandoned.DisplayID != "display" {
		t.Fatalf("display = %s, want display", abandoned.DisplayID)
	}
}

func TestApply_NonOrganizerTerminalIsAbsorbed(t *testing.T) {
	s := openRound(t, "display")
	s, replies := s.Apply(organizers, defaultCfg, "ana", "m2",
		[]command.Command{command.Abort{}}, at(2))
	if s.Status != StatusActive {
		t.Fatalf("status = %d, want active", s.Status)
	}
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	if _, ok := replies[0].(reply.UpdateTeams); !ok {
		t.Fatalf("reply = %T, want UpdateTeams; the round stays open and re-renders", replies[0])
	}
}

func TestApply_ReopenViaEditedMessageKeepsLedger(t *testing.T) {
	s := openRound(t, "display")
	s, _ = s.Apply(organizers, defaultCfg, "ana", "m2", []command.Command{command.Volunteer{Role: "dps"}}, at(2))

	wider := domain.Slots{{Role: "tank", Capacity: 1}, {Role: "dps", Capacity: 3}}
	s, replies := s.Apply(organizers, defaultCfg, "lead", "open-msg",
		[]command.Command{command.Open{Slots: wider, DisplayID: "display"}}, at(3))

	if s.Status != StatusActive {
		t.Fatalf("status = %d, want active", s.Status)
	}
	if s.Ledger.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1; reopen must preserve the ledger", s.Ledger.Len())
	}
	if !reflect.DeepEqual(s.Slots, wider) {
		t.Fatalf("slots = %v, want %v", s.Slots, wider)
	}
	if len(replies) != 2 {
		t.Fatalf("replies = %d, want 2", len(replies))
	}
	for i, r := range replies {
		update, ok := r.(reply.UpdateTeams)
		if !ok {
			t.Fatalf("reply %d = %T, want UpdateTeams", i, r)
		}
		if got := update.Teams[0].Members["dps"]; len(got) != 1 || got[0] != "ana" {
			t.Fatalf("rebuilt dps members = %v, want [ana]", got)
		}
	}
}

func TestApply_EditedOpenMessageWithoutOpenCollapses(t *testing.T) {
	s := openRound(t, "display")
	s, replies := s.Apply(organizers, defaultCfg, "lead", "open-msg",
		[]command.Command{command.Help{}}, at(2))

	if s.Status != StatusInactive {
		t.Fatalf("status = %d, want inactive", s.Status)
	}
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	if _, ok := replies[0].(reply.AbandonTeams); !ok {
		t.Fatalf("reply = %T, want AbandonTeams", replies[0])
	}
}

func TestApply_QueryReflectsUncommittedMutationsInSameBatch(t *testing.T) {
	s := openRound(t, "")

	_, replies := s.Apply(organizers, defaultCfg, "ana", "m2", []command.Command{
		command.Volunteer{Role: "dps"},
		command.Query{User: "ana"},
	}, at(2))

	var status reply.Status
	found := false
	for _, r := range replies {
		if st, ok := r.(reply.Status); ok {
			status = st
			found = true
		}
	}
	if !found {
		t.Fatalf("no status reply in %v", replies)
	}
	if !reflect.DeepEqual(status.Volunteered, []domain.Role{"dps"}) {
		t.Fatalf("volunteered = %v, want [dps]; query must see the in-flight batch", status.Volunteered)
	}
}

func TestApply_QueryBeforeMutationDoesNotSeeIt(t *testing.T) {
	s := openRound(t, "")

	_, replies := s.Apply(organizers, defaultCfg, "ana", "m2", []command.Command{
		command.Query{User: "ana"},
		command.Volunteer{Role: "dps"},
	}, at(2))

	for _, r := range replies {
		if status, ok := r.(reply.Status); ok {
			if len(status.Volunteered) != 0 {
				t.Fatalf("volunteered = %v, want empty; the offer folds after the query", status.Volunteered)
			}
			return
		}
	}
	t.Fatalf("no status reply in %v", replies)
}

func TestApply_QueryOnlyBatchStillRefreshesDisplay(t *testing.T) {
	s := openRound(t, "display")

	_, replies := s.Apply(organizers, defaultCfg, "ana", "m2",
		[]command.Command{command.Query{User: "ana"}}, at(2))

	if len(replies) != 2 {
		t.Fatalf("replies = %d, want 2 (status, then display refresh)", len(replies))
	}
	if _, ok := replies[0].(reply.Status); !ok {
		t.Fatalf("first reply = %T, want Status", replies[0])
	}
	update, ok := replies[1].(reply.UpdateTeams)
	if !ok {
		t.Fatalf("second reply = %T, want UpdateTeams", replies[1])
	}
	if update.DisplayID != "display" {
		t.Fatalf("display = %s, want display", update.DisplayID)
	}
}

func TestApply_AbortDiscardsInFlightBatch(t *testing.T) {
	s := openRound(t, "")
	s, _ = s.Apply(organizers, defaultCfg, "ana", "m2", []command.Command{command.Volunteer{Role: "dps"}}, at(2))

	before := s.Ledger.Len()
	next, _ := s.Apply(organizers, defaultCfg, "lead", "m3", []command.Command{
		command.Volunteer{Role: "tank"},
		command.Abort{},
	}, at(3))

	if next.Status != StatusInactive {
		t.Fatalf("status = %d, want inactive", next.Status)
	}
	// The aborted batch never reached the ledger; the surviving value of
	// the prior session still has only the committed entry.
	if s.Ledger.Len() != before {
		t.Fatalf("prior ledger length = %d, want %d", s.Ledger.Len(), before)
	}
}

func TestApply_LastModifiedIsMonotonic(t *testing.T) {
	s := Inactive(at(5))

	s, _ = s.Apply(organizers, defaultCfg, "lead", "open-msg",
		[]command.Command{command.Open{Slots: raidSlots}}, at(3))
	if s.LastModified.Before(at(5)) {
		t.Fatalf("lastModified = %v, want at least %v after stale open", s.LastModified, at(5))
	}

	s, _ = s.Apply(organizers, defaultCfg, "ana", "m2",
		[]command.Command{command.Volunteer{Role: "dps"}}, at(9))
	if !s.LastModified.Equal(at(9)) {
		t.Fatalf("lastModified = %v, want %v", s.LastModified, at(9))
	}

	s, _ = s.Apply(organizers, defaultCfg, "bo", "m3",
		[]command.Command{command.Volunteer{Role: "dps"}}, at(7))
	if !s.LastModified.Equal(at(9)) {
		t.Fatalf("lastModified = %v, want %v after out-of-order delivery", s.LastModified, at(9))
	}
}

func TestApply_OpenAndVolunteerInOneBatch(t *testing.T) {
	s, replies := Inactive(at(0)).Apply(organizers, defaultCfg, "lead", "open-msg", []command.Command{
		command.Open{Slots: raidSlots, DisplayID: "display"},
		command.Volunteer{Role: "tank"},
	}, at(1))

	if s.Ledger.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1", s.Ledger.Len())
	}
	if len(replies) != 2 {
		t.Fatalf("replies = %d, want 2 (initial display, then update)", len(replies))
	}
	first, ok := replies[0].(reply.UpdateTeams)
	if !ok || first.Teams[0].FilledCount() != 0 {
		t.Fatalf("first reply = %+v, want empty-team update", replies[0])
	}
	second, ok := replies[1].(reply.UpdateTeams)
	if !ok {
		t.Fatalf("second reply = %T, want UpdateTeams", replies[1])
	}
	if got := second.Teams[0].Members["tank"]; len(got) != 1 || got[0] != "lead" {
		t.Fatalf("tank members = %v, want [lead]", got)
	}
}
