package domain

import (
	"encoding/json"
	"testing"
)

func TestElementType_Matches(t *testing.T) {
	tests := []struct {
		name    string
		want    ElementType
		actual  ElementType
		matches bool
	}{
		{"same type", EdgeAccessConstPosPerm, EdgeAccessConstPosPerm, true},
		{"var matches const", EdgeAccessVarPosPerm, EdgeAccessConstPosPerm, true},
		{"pos matches perm", EdgeAccessVarPos, EdgeAccessConstPosPerm, true},
		{"pos matches temp", EdgeAccessVarPos, EdgeAccessConstPosTemp, true},
		{"perm rejects temp", EdgeAccessVarPosPerm, EdgeAccessConstPosTemp, false},
		{"access rejects dcommon", EdgeAccessVarPos, EdgeDCommonConst, false},
		{"node matches tuple", NodeVar, NodeConstTuple, true},
		{"tuple rejects plain node", NodeVarTuple, NodeConst, false},
		{"node matches link", NodeVar, LinkConst, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.want.Matches(tt.actual); got != tt.matches {
				t.Errorf("Matches = %v, want %v", got, tt.matches)
			}
		})
	}
}

func TestElementType_Const(t *testing.T) {
	if got := EdgeAccessVarPosPerm.Const(); got != EdgeAccessConstPosPerm {
		t.Errorf("Const = %d, want %d", got, EdgeAccessConstPosPerm)
	}
	if got := NodeConst.Const(); got != NodeConst {
		t.Errorf("Const of const type changed it: %d", got)
	}
}

func TestAddr_JSON(t *testing.T) {
	a := NewAddr()
	data, err := json.Marshal(struct{ A Addr }{a})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back struct{ A Addr }
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.A != a {
		t.Errorf("got %s, want %s", back.A, a)
	}

	if InvalidAddr.IsValid() {
		t.Error("zero addr must be invalid")
	}
	if _, err := ParseAddr("not-a-uuid"); err == nil {
		t.Error("expected parse error")
	}
}

func TestTemplate_TripleWithRelation(t *testing.T) {
	rel := NewAddr()
	tmpl := NewTemplate().
		TripleWithRelation(Var(NodeVar).As("a"), Var(EdgeAccessVarPosPerm), Var(NodeVar), Var(EdgeAccessVarPosPerm), Fixed(rel)).
		TripleWithRelation(Ref("a"), Var(EdgeDCommonVar).As("e"), Var(NodeVar), Var(EdgeAccessVarPosPerm), Fixed(rel))

	if len(tmpl.Triples) != 4 {
		t.Fatalf("got %d triples, want 4", len(tmpl.Triples))
	}
	if got := tmpl.Triples[0].Edge.Alias; got != "_edge0" {
		t.Errorf("generated alias = %q, want _edge0", got)
	}
	if got := tmpl.Triples[1].Target.Ref; got != "_edge0" {
		t.Errorf("relation triple refers to %q", got)
	}
	if got := tmpl.Triples[3].Target.Ref; got != "e" {
		t.Errorf("explicit alias not reused: %q", got)
	}
	if !tmpl.Triples[1].Source.IsFixed() {
		t.Error("relation must be fixed")
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeLinked:   "linked",
		OutcomeRejected: "rejected",
		OutcomeFailed:   "failed",
		Outcome(0):      "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", o, got, want)
		}
	}
}
