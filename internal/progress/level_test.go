package progress

import "testing"

func TestGetLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want Level
	}{
		{-5, Level{1, "Iniciante", 0, 100}},
		{0, Level{1, "Iniciante", 0, 100}},
		{99, Level{1, "Iniciante", 99, 1}},
		{100, Level{2, "Aprendiz", 0, 150}},
		{260, Level{3, "Estudante", 10, 240}},
		{999, Level{4, "Programador", 499, 1}},
		{1000, Level{5, "Desenvolvedor", 0, 1000}},
		{3999, Level{6, "Arquiteto", 1999, 1}},
		{4000, Level{7, "Mestre da OOP", 0, 0}},
		{12345, Level{7, "Mestre da OOP", 8345, 0}},
	}

	for _, tt := range tests {
		got := GetLevel(tt.xp)
		if got != tt.want {
			t.Errorf("GetLevel(%d) = %+v, want %+v", tt.xp, got, tt.want)
		}
	}
}

func TestGetLevel_Monotonic(t *testing.T) {
	prev := GetLevel(0)
	for xp := 1; xp <= 5000; xp++ {
		got := GetLevel(xp)
		if got.Level < prev.Level {
			t.Fatalf("level decreased at xp=%d: %d -> %d", xp, prev.Level, got.Level)
		}
		if got.Level == MaxLevel() && got.XPForNext != 0 {
			t.Fatalf("max level should not have xpForNext, got %d", got.XPForNext)
		}
		prev = got
	}
}
