package team

import (
	"reflect"
	"testing"

	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/ledger"
)

var raidSlots = domain.Slots{
	{Role: "tank", Capacity: 1},
	{Role: "dps", Capacity: 2},
}

func rosterFrom(t *testing.T, organizers domain.Users, entries ...ledger.Entry) ledger.Roster {
	t.Helper()
	l := ledger.New()
	for _, entry := range entries {
		l = l.Append(entry)
	}
	return l.BuildRoster(organizers)
}

func volunteerEntry(message domain.MessageID, author domain.User, roles ...domain.Role) ledger.Entry {
	mutations := make([]command.Mutation, len(roles))
	for i, role := range roles {
		mutations[i] = command.Volunteer{Role: role}
	}
	return ledger.Entry{MessageID: message, Author: author, Mutations: mutations}
}

func membersOf(team domain.Team, role domain.Role) []domain.User {
	return team.Members[role]
}

func TestBuild_EmptyRosterYieldsOneEmptyTeam(t *testing.T) {
	teams := Build(ledger.Roster{}, raidSlots, domain.DefaultConfiguration())
	if len(teams) != 1 {
		t.Fatalf("teams = %d, want 1", len(teams))
	}
	if teams[0].FilledCount() != 0 {
		t.Fatalf("filled = %d, want 0", teams[0].FilledCount())
	}
}

func TestBuild_VolunteersFillInPriorityOrder(t *testing.T) {
	roster := rosterFrom(t, nil,
		volunteerEntry("m1", "ana", "dps"),
		volunteerEntry("m2", "bo", "dps"),
		volunteerEntry("m3", "cy", "dps"),
		volunteerEntry("m4", "di", "tank"),
	)

	teams := Build(roster, raidSlots, domain.DefaultConfiguration())
	if len(teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(teams))
	}
	if got := membersOf(teams[0], "dps"); !reflect.DeepEqual(got, []domain.User{"ana", "bo"}) {
		t.Fatalf("first team dps = %v, want [ana bo]", got)
	}
	if got := membersOf(teams[0], "tank"); !reflect.DeepEqual(got, []domain.User{"di"}) {
		t.Fatalf("first team tank = %v, want [di]", got)
	}
	if got := membersOf(teams[1], "dps"); !reflect.DeepEqual(got, []domain.User{"cy"}) {
		t.Fatalf("second team dps = %v, want [cy]", got)
	}
}

func TestBuild_CapacityNeverExceeded(t *testing.T) {
	roster := rosterFrom(t, nil,
		volunteerEntry("m1", "ana", "tank"),
		volunteerEntry("m2", "bo", "tank"),
		volunteerEntry("m3", "cy", "tank"),
	)

	teams := Build(roster, raidSlots, domain.DefaultConfiguration())
	for i, team := range teams {
		if len(membersOf(team, "tank")) > 1 {
			t.Fatalf("team %d tank seats = %d, want at most 1", i, len(membersOf(team, "tank")))
		}
	}
	if len(teams) != 3 {
		t.Fatalf("teams = %d, want 3", len(teams))
	}
}

func TestBuild_AssignmentOverflowOpensNewTeam(t *testing.T) {
	roster := rosterFrom(t, domain.Users{"lead"},
		ledger.Entry{MessageID: "m1", Author: "lead", Mutations: []command.Mutation{
			command.Assign{User: "ana", Role: "tank"},
			command.Assign{User: "bo", Role: "tank"},
		}},
	)

	teams := Build(roster, raidSlots, domain.DefaultConfiguration())
	if len(teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(teams))
	}
	if got := membersOf(teams[0], "tank"); !reflect.DeepEqual(got, []domain.User{"ana"}) {
		t.Fatalf("first team tank = %v, want [ana]", got)
	}
	if got := membersOf(teams[1], "tank"); !reflect.DeepEqual(got, []domain.User{"bo"}) {
		t.Fatalf("second team tank = %v, want [bo]", got)
	}
}

func TestBuild_AssignmentToUnknownRoleSkipped(t *testing.T) {
	roster := rosterFrom(t, domain.Users{"lead"},
		ledger.Entry{MessageID: "m1", Author: "lead", Mutations: []command.Mutation{
			command.Assign{User: "ana", Role: "healer"},
		}},
	)

	teams := Build(roster, raidSlots, domain.DefaultConfiguration())
	if len(teams) != 1 {
		t.Fatalf("teams = %d, want 1", len(teams))
	}
	if teams[0].FilledCount() != 0 {
		t.Fatalf("filled = %d, want 0", teams[0].FilledCount())
	}
}

func TestBuild_AssignedUserNotSeatedAsVolunteer(t *testing.T) {
	roster := rosterFrom(t, domain.Users{"lead"},
		volunteerEntry("m1", "ana", "dps"),
		ledger.Entry{MessageID: "m2", Author: "lead", Mutations: []command.Mutation{
			command.Assign{User: "ana", Role: "tank"},
		}},
	)

	teams := Build(roster, raidSlots, domain.DefaultConfiguration())
	if len(teams) != 1 {
		t.Fatalf("teams = %d, want 1", len(teams))
	}
	if got := membersOf(teams[0], "tank"); !reflect.DeepEqual(got, []domain.User{"ana"}) {
		t.Fatalf("tank = %v, want [ana]", got)
	}
	if got := membersOf(teams[0], "dps"); len(got) != 0 {
		t.Fatalf("dps = %v, want empty", got)
	}
}

func TestBuild_CycleAvoidsLastRoundRole(t *testing.T) {
	lastRound := []domain.Team{
		domain.NewTeam().Seat("tank", "ana").Seat("dps", "bo").Seat("dps", "cy"),
	}
	history := domain.NewHistory(3).Prepend(lastRound)

	// ana volunteers for tank and dps; bo volunteers for tank. Fresh tank
	// candidate bo takes the seat, ana rotates into dps.
	roster := rosterFrom(t, nil,
		volunteerEntry("m1", "ana", "tank", "dps"),
		volunteerEntry("m2", "bo", "tank"),
	)

	teams := Build(roster, raidSlots, domain.CycleConfiguration(history))
	if got := membersOf(teams[0], "tank"); !reflect.DeepEqual(got, []domain.User{"bo"}) {
		t.Fatalf("tank = %v, want [bo]", got)
	}
	if got := membersOf(teams[0], "dps"); !reflect.DeepEqual(got, []domain.User{"ana"}) {
		t.Fatalf("dps = %v, want [ana]", got)
	}
}

func TestBuild_CycleRepeatsWhenRoleWouldGoUnfilled(t *testing.T) {
	lastRound := []domain.Team{
		domain.NewTeam().Seat("tank", "ana"),
	}
	history := domain.NewHistory(3).Prepend(lastRound)

	roster := rosterFrom(t, nil, volunteerEntry("m1", "ana", "tank"))

	teams := Build(roster, raidSlots, domain.CycleConfiguration(history))
	if got := membersOf(teams[0], "tank"); !reflect.DeepEqual(got, []domain.User{"ana"}) {
		t.Fatalf("tank = %v, want [ana]; soft constraint yields to filling the role", got)
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	roster := rosterFrom(t, nil,
		volunteerEntry("m1", "ana", "dps"),
		volunteerEntry("m2", "bo", "dps", "tank"),
		volunteerEntry("m3", "cy", "tank"),
	)
	cfg := domain.DefaultConfiguration()

	first := Build(roster, raidSlots, cfg)
	second := Build(roster, raidSlots, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("builds differ:\n%+v\n%+v", first, second)
	}
}

func TestFinalize_DropsIncompleteTeams(t *testing.T) {
	roster := rosterFrom(t, nil,
		volunteerEntry("m1", "ana", "tank"),
		volunteerEntry("m2", "bo", "dps"),
		volunteerEntry("m3", "cy", "dps"),
		volunteerEntry("m4", "di", "dps"),
	)

	teams := Build(roster, raidSlots, domain.DefaultConfiguration())
	if len(teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(teams))
	}

	finalized := Finalize(teams, raidSlots)
	if len(finalized) != 1 {
		t.Fatalf("finalized teams = %d, want 1", len(finalized))
	}
	if finalized[0].FilledCount() != raidSlots.TotalCapacity() {
		t.Fatalf("finalized team filled = %d, want %d", finalized[0].FilledCount(), raidSlots.TotalCapacity())
	}
}
