package stream

import "testing"

func TestNextBoundary(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "full stop boundary",
			text: "你好。今天",
			want: len("你好。"),
		},
		{
			name: "no boundary yet",
			text: "你好",
			want: -1,
		},
		{
			name: "exclamation mark",
			text: "太棒了！继续",
			want: len("太棒了！"),
		},
		{
			name: "question mark",
			text: "你呢？",
			want: len("你呢？"),
		},
		{
			name: "newline counts as boundary",
			text: "第一行\n第二行",
			want: len("第一行\n"),
		},
		{
			name: "first marker wins",
			text: "啊！真的吗？",
			want: len("啊！"),
		},
		{
			name: "empty input",
			text: "",
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextBoundary(tt.text); got != tt.want {
				t.Errorf("NextBoundary(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestNextBoundarySplitsStreamedProse(t *testing.T) {
	text := "我很好。你呢？"

	first := NextBoundary(text)
	if first != len("我很好。") {
		t.Fatalf("first boundary = %d, want %d", first, len("我很好。"))
	}

	second := NextBoundary(text[first:])
	if second != len("你呢？") {
		t.Fatalf("second boundary = %d, want %d", second, len("你呢？"))
	}

	if first+second != len(text) {
		t.Errorf("boundaries do not cover the prose: %d + %d != %d", first, second, len(text))
	}
}
