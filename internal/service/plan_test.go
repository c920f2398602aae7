package service

import (
	"context"
	"reflect"
	"sort"
	"testing"
)

func TestAddPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "a@x.com", "")
	coat := env.addGarment(t, owner, "Coat")
	hat := env.addGarment(t, owner, "Hat")

	p, err := env.plans.Add(ctx, owner, PlanInput{
		Title: " Office ", Description: strPtr("meeting"), Date: "2024-03-05T09:00:00Z",
		GarmentIDs: []uint64{hat.ID, coat.ID, hat.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Office" || p.Date != "2024-03-05" || p.Description == nil || *p.Description != "meeting" {
		t.Errorf("unexpected plan %+v", p)
	}
	var got []uint64
	for _, g := range p.Garments {
		got = append(got, g.ID)
	}
	if !reflect.DeepEqual(got, []uint64{coat.ID, hat.ID}) {
		t.Errorf("expected garments ordered by id without duplicates, got %v", got)
	}

	empty, err := env.plans.Add(ctx, owner, PlanInput{Title: "Rest", Date: "2024-03-06"})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Garments == nil || len(empty.Garments) != 0 {
		t.Errorf("expected [] garments, got %#v", empty.Garments)
	}
}

func TestAddPlanValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "a@x.com", "")
	other := env.register(t, "b@x.com", "")
	foreign := env.addGarment(t, other, "Not mine")

	tests := []struct {
		name string
		in   PlanInput
	}{
		{"missing title", PlanInput{Date: "2024-03-01"}},
		{"missing date", PlanInput{Title: "x"}},
		{"bad date", PlanInput{Title: "x", Date: "03/01/2024"}},
		{"impossible date", PlanInput{Title: "x", Date: "2024-02-30"}},
		{"zero garment id", PlanInput{Title: "x", Date: "2024-03-01", GarmentIDs: []uint64{0}}},
		{"unknown garment", PlanInput{Title: "x", Date: "2024-03-01", GarmentIDs: []uint64{9999}}},
		{"another user's garment", PlanInput{Title: "x", Date: "2024-03-01", GarmentIDs: []uint64{foreign.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.plans.Add(ctx, owner, tt.in)
			wantKind(t, err, KindValidation)
		})
	}
	if n := env.count(t, `SELECT COUNT(*) FROM plans`); n != 0 {
		t.Errorf("failed adds must not leave plans behind, got %d", n)
	}
}

func TestUpdatePlanGarments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "a@x.com", "")
	coat := env.addGarment(t, owner, "Coat")
	hat := env.addGarment(t, owner, "Hat")
	p, err := env.plans.Add(ctx, owner, PlanInput{Title: "Day", Date: "2024-03-01", GarmentIDs: []uint64{coat.ID}})
	if err != nil {
		t.Fatal(err)
	}

	p, err = env.plans.Update(ctx, p.ID, owner, []uint64{hat.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Garments) != 1 || p.Garments[0].ID != hat.ID {
		t.Errorf("expected only the hat, got %+v", p.Garments)
	}

	foreign := env.addGarment(t, env.register(t, "b@x.com", ""), "Not mine")
	_, err = env.plans.Update(ctx, p.ID, owner, []uint64{coat.ID, foreign.ID})
	wantKind(t, err, KindValidation)
	got, err := env.plans.Detail(ctx, p.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Garments) != 1 || got.Garments[0].ID != hat.ID {
		t.Errorf("failed update must keep previous garments, got %+v", got.Garments)
	}

	p, err = env.plans.Update(ctx, p.ID, owner, []uint64{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Garments == nil || len(p.Garments) != 0 {
		t.Errorf("expected empty, non-nil garments, got %#v", p.Garments)
	}
}

func TestPlanOwnershipIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "a@x.com", "")
	intruder := env.register(t, "b@x.com", "")
	coat := env.addGarment(t, owner, "Coat")
	p, err := env.plans.Add(ctx, owner, PlanInput{Title: "Day", Date: "2024-03-01", GarmentIDs: []uint64{coat.ID}})
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.plans.Detail(ctx, p.ID, intruder)
	wantKind(t, err, KindNotFound)
	_, err = env.plans.Update(ctx, p.ID, intruder, nil)
	wantKind(t, err, KindNotFound)
	wantKind(t, env.plans.Delete(ctx, p.ID, intruder), KindNotFound)

	got, err := env.plans.Detail(ctx, p.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Garments) != 1 {
		t.Errorf("plan changed by a non-owner: %+v", got)
	}

	if err := env.plans.Delete(ctx, p.ID, owner); err != nil {
		t.Fatal(err)
	}
	if n := env.count(t, `SELECT COUNT(*) FROM plan_items WHERE plan_id=?`, p.ID); n != 0 {
		t.Errorf("pairings must be removed with the plan, got %d", n)
	}
	wantKind(t, env.plans.Delete(ctx, p.ID, owner), KindNotFound)
}

func TestListPlansGroupsByDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "a@x.com", "")
	other := env.register(t, "b@x.com", "")

	for _, in := range []struct {
		user uint64
		date string
	}{
		{owner, "2024-02-29"},
		{owner, "2024-03-01"},
		{owner, "2024-03-01"},
		{owner, "2024-03-15"},
		{owner, "2024-03-31"},
		{owner, "2024-04-01"},
		{other, "2024-03-10"},
	} {
		if _, err := env.plans.Add(ctx, in.user, PlanInput{Title: "p", Date: in.date}); err != nil {
			t.Fatal(err)
		}
	}

	byDate, err := env.plans.List(ctx, owner, 2024, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if !reflect.DeepEqual(keys, []string{"2024-03-01", "2024-03-15", "2024-03-31"}) {
		t.Errorf("unexpected dates %v", keys)
	}
	if len(byDate["2024-03-01"]) != 2 {
		t.Errorf("expected two plans on March 1st, got %d", len(byDate["2024-03-01"]))
	}

	day, err := env.plans.List(ctx, owner, 2024, 3, 15)
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 || len(day["2024-03-15"]) != 1 {
		t.Errorf("unexpected single-day listing %v", day)
	}

	none, err := env.plans.List(ctx, owner, 2023, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expected an empty month, got %v", none)
	}
}

func TestPlanRange(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		start, end       string
		wantErr          bool
	}{
		{"leap february", 2024, 2, 0, "2024-02-01", "2024-03-01", false},
		{"december rolls into next year", 2023, 12, 0, "2023-12-01", "2024-01-01", false},
		{"single day", 2024, 2, 29, "2024-02-29", "2024-03-01", false},
		{"last day of year", 2023, 12, 31, "2023-12-31", "2024-01-01", false},
		{"february 30th", 2024, 2, 30, "", "", true},
		{"february 29th off leap year", 2023, 2, 29, "", "", true},
		{"month 13", 2024, 13, 0, "", "", true},
		{"month 0", 2024, 0, 0, "", "", true},
		{"year 0", 0, 1, 0, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := PlanRange(tt.year, tt.month, tt.day)
			if tt.wantErr {
				wantKind(t, err, KindValidation)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("got [%s, %s), want [%s, %s)", start, end, tt.start, tt.end)
			}
		})
	}
}
