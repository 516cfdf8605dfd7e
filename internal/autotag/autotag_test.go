package autotag

import (
	"testing"

	"tasktree/backend"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ＧＯ言語", "go言語"},
		{"  Report ", "report"},
		{"ｶﾀｶﾅ", "カタカナ"},
		{"１２３", "123"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	rules := []backend.KeywordRule{
		{Tag: "仕事", Keywords: []string{"", "会議", "report"}},
		{Tag: "買い物", Keywords: []string{"牛乳", "会議"}},
		{Tag: "", Keywords: []string{"ignored"}},
	}

	tests := []struct {
		name    string
		title   string
		wantTag string
		wantOK  bool
	}{
		{"first rule wins", "会議で牛乳", "仕事", true},
		{"second rule", "牛乳を買う", "買い物", true},
		{"fullwidth keyword", "ＲＥＰＯＲＴを書く", "仕事", true},
		{"no match", "散歩", "", false},
		{"empty keyword never matches", "anything", "", false},
		{"rule without tag", "ignored", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := Classify(tt.title, rules)
			if tag != tt.wantTag || ok != tt.wantOK {
				t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.title, tag, ok, tt.wantTag, tt.wantOK)
			}
		})
	}

	if _, ok := Classify("会議", nil); ok {
		t.Error("Classify with no rules must not match")
	}
}

func TestShouldClassify(t *testing.T) {
	if !ShouldClassify("", backend.DefaultTagName) {
		t.Error("empty tag should be classified")
	}
	if !ShouldClassify(backend.DefaultTagName, backend.DefaultTagName) {
		t.Error("default tag should be classified")
	}
	if ShouldClassify("仕事", backend.DefaultTagName) {
		t.Error("explicit tag must be kept")
	}
}
