package token

import "testing"

func TestMakePosLineCol(t *testing.T) {
	cases := []struct {
		line, col int
	}{
		{1, 1},
		{1, 40},
		{120, 3},
		{MaxLines, MaxCols},
	}
	for _, c := range cases {
		p := MakePos(c.line, c.col)
		gotLine, gotCol := p.LineCol()
		if gotLine != c.line || gotCol != c.col {
			t.Errorf("MakePos(%d,%d).LineCol() = (%d,%d)", c.line, c.col, gotLine, gotCol)
		}
		if p.Unknown() {
			t.Errorf("MakePos(%d,%d) reported Unknown", c.line, c.col)
		}
	}
}

func TestPosUnknown(t *testing.T) {
	var zero Pos
	if !zero.Unknown() {
		t.Error("zero Pos should be Unknown")
	}
	if MakePos(1, 1).Unknown() {
		t.Error("MakePos(1,1) should not be Unknown")
	}
}

func TestPositionString(t *testing.T) {
	cases := []struct {
		pos  Position
		want string
	}{
		{Position{Filename: "mod.ares", Pos: MakePos(3, 7)}, "mod.ares:3:7"},
		{Position{Filename: "", Pos: MakePos(3, 7)}, "3:7"},
		{Position{Filename: "mod.ares"}, "mod.ares"},
	}
	for _, c := range cases {
		if got := c.pos.String(); got != c.want {
			t.Errorf("Position.String() = %q, want %q", got, c.want)
		}
	}
}
