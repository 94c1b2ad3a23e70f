package game

import "testing"

func TestBeats(t *testing.T) {
	tests := []struct {
		a, b Move
		want bool
	}{
		{Rock, Scissors, true},
		{Rock, Lizard, true},
		{Paper, Rock, true},
		{Paper, Spock, true},
		{Scissors, Paper, true},
		{Scissors, Lizard, true},
		{Lizard, Spock, true},
		{Lizard, Paper, true},
		{Spock, Scissors, true},
		{Spock, Rock, true},
		{Rock, Paper, false},
		{Rock, Rock, false},
		{Move("dynamite"), Rock, false},
		{Rock, Move("dynamite"), false},
	}
	for _, tt := range tests {
		if got := Beats(tt.a, tt.b); got != tt.want {
			t.Errorf("Beats(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScoreRPSLS(t *testing.T) {
	if a, b := ScoreRPSLS(Spock, Lizard); a != 0 || b != 1 {
		t.Errorf("ScoreRPSLS(spock, lizard) = %d/%d, want 0/1", a, b)
	}
	if a, b := ScoreRPSLS(Paper, Paper); a != 0 || b != 0 {
		t.Errorf("ScoreRPSLS(paper, paper) = %d/%d, want 0/0", a, b)
	}
}

func TestValidAllocation(t *testing.T) {
	rules := DefaultRules(ColonelBlotto)

	tests := []struct {
		name    string
		alloc   []int
		wantErr bool
	}{
		{"exact budget", []int{20, 20, 20, 20, 20}, false},
		{"uneven but valid", []int{100, 0, 0, 0, 0}, false},
		{"too few fronts", []int{50, 50}, true},
		{"too many fronts", []int{20, 20, 20, 20, 10, 10}, true},
		{"over budget", []int{30, 30, 30, 30, 30}, true},
		{"under budget", []int{10, 10, 10, 10, 10}, true},
		{"negative front", []int{120, -20, 0, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.ValidAllocation(tt.alloc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidAllocation(%v) error = %v, wantErr %v", tt.alloc, err, tt.wantErr)
			}
		})
	}
}

func TestScoreBlotto(t *testing.T) {
	a := []int{30, 30, 20, 10, 10}
	b := []int{20, 20, 20, 20, 20}
	sa, sb := ScoreBlotto(a, b)
	if sa != 2 || sb != 2 {
		t.Errorf("ScoreBlotto = %d/%d, want 2/2 (tied front scores nothing)", sa, sb)
	}
}

func TestScoreDilemma(t *testing.T) {
	tests := []struct {
		a, b       CoopChoice
		wantA, wantB int
	}{
		{Cooperate, Cooperate, 3, 3},
		{Defect, Defect, 1, 1},
		{Defect, Cooperate, 5, 0},
		{Cooperate, Defect, 0, 5},
	}
	for _, tt := range tests {
		a, b := ScoreDilemma(tt.a, tt.b)
		if a != tt.wantA || b != tt.wantB {
			t.Errorf("ScoreDilemma(%s, %s) = %d/%d, want %d/%d",
				tt.a, tt.b, a, b, tt.wantA, tt.wantB)
		}
	}
}

func TestScoreSplit(t *testing.T) {
	tests := []struct {
		a, b       SplitChoice
		wantA, wantB int
	}{
		{Split, Split, 50, 50},
		{Steal, Steal, 0, 0},
		{Steal, Split, 100, 0},
		{Split, Steal, 0, 100},
	}
	for _, tt := range tests {
		a, b := ScoreSplit(tt.a, tt.b)
		if a != tt.wantA || b != tt.wantB {
			t.Errorf("ScoreSplit(%s, %s) = %d/%d, want %d/%d",
				tt.a, tt.b, a, b, tt.wantA, tt.wantB)
		}
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("rpsls"); err != nil {
		t.Fatalf("ParseKind(rpsls) failed: %v", err)
	}
	if _, err := ParseKind("chess"); err == nil {
		t.Fatal("ParseKind(chess) should fail")
	}
}

func TestGameStateCloneIsolation(t *testing.T) {
	orig := GameState{
		Round:   3,
		History: []Exchange{{Mine: "rock", Theirs: "paper"}},
		Aux:     map[string]string{"fronts": "5"},
	}
	cp := orig.Clone()
	cp.History[0].Mine = "spock"
	cp.Aux["fronts"] = "9"

	if orig.History[0].Mine != "rock" {
		t.Error("clone shares history backing array")
	}
	if orig.Aux["fronts"] != "5" {
		t.Error("clone shares aux map")
	}
}

func TestEncodeAllocation(t *testing.T) {
	got := EncodeAllocation([]int{20, 0, 80})
	if got != "20/0/80" {
		t.Errorf("EncodeAllocation = %q, want 20/0/80", got)
	}
}
