package keyboard

import "testing"

func names(n int) []InlineBtn {
	out := make([]InlineBtn, n)
	for i := range out {
		out[i] = InlineBtn{Text: "b", Unique: "quiz_target", Data: "d"}
	}
	return out
}

func TestInlineButtonsNPerRowWrapping(t *testing.T) {
	cases := []struct {
		buttons int
		perRow  int
		rows    []int
	}{
		{7, 3, []int{3, 3, 1}},
		{3, 3, []int{3}},
		{2, 3, []int{2}},
		{4, 1, []int{1, 1, 1, 1}},
		{0, 3, nil},
	}
	for _, tc := range cases {
		markup := InlineButtonsNPerRow(names(tc.buttons), tc.perRow)
		if len(markup.InlineKeyboard) != len(tc.rows) {
			t.Errorf("%d buttons, %d per row: %d rows, want %d",
				tc.buttons, tc.perRow, len(markup.InlineKeyboard), len(tc.rows))
			continue
		}
		for i, want := range tc.rows {
			if got := len(markup.InlineKeyboard[i]); got != want {
				t.Errorf("%d buttons, %d per row: row %d has %d buttons, want %d",
					tc.buttons, tc.perRow, i, got, want)
			}
		}
	}
}
