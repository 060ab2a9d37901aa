package note

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty",
			query: "",
			want:  nil,
		},
		{
			name:  "whitespace only",
			query: "  \t\n ",
			want:  nil,
		},
		{
			name:  "simple words lowercased",
			query: "Project Roadmap",
			want:  []string{"project", "roadmap"},
		},
		{
			name:  "punctuation splits words",
			query: "what's the plan, really?",
			want:  []string{"what", "s", "the", "plan", "really"},
		},
		{
			name:  "duplicates removed",
			query: "notes notes NOTES",
			want:  []string{"notes"},
		},
		{
			name:  "digits kept in words",
			query: "q3 2026 goals",
			want:  []string{"q3", "2026", "goals"},
		},
		{
			name:  "han characters tokenize individually",
			query: "会议记录 roadmap",
			want:  []string{"会", "议", "记", "录", "roadmap"},
		},
		{
			name:  "han adjacent to latin",
			query: "项目roadmap",
			want:  []string{"项", "目", "roadmap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeQuery(tt.query))
		})
	}
}
