package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grammalecte() Snapshot {
	return Snapshot{
		Executable: "python3",
		Script:     "/opt/grammalecte/grammalecte-cli.py",
		Args:       []string{"-j", "-cl", "-owe", "-ctx"},
		FileFlag:   "-f",
		OnFlag:     "-on",
		OffFlag:    "-off",
	}
}

func TestSnapshot_Command(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   []string
	}{
		{
			name: "no options",
			want: []string{"python3", "/opt/grammalecte/grammalecte-cli.py", "-j", "-cl", "-owe", "-ctx", "-f", "/tmp/in.txt"},
		},
		{
			name: "on and off groups sorted",
			mutate: func(s *Snapshot) {
				s.Options = map[string]bool{"typo": true, "apos": true, "nbsp": false, "esp": false}
			},
			want: []string{
				"python3", "/opt/grammalecte/grammalecte-cli.py", "-j", "-cl", "-owe", "-ctx",
				"-on", "apos", "typo", "-off", "esp", "nbsp", "-f", "/tmp/in.txt",
			},
		},
		{
			name: "local options never passed",
			mutate: func(s *Snapshot) {
				s.Options = map[string]bool{"_orth_": true, "apos": false}
			},
			want: []string{
				"python3", "/opt/grammalecte/grammalecte-cli.py", "-j", "-cl", "-owe", "-ctx",
				"-off", "apos", "-f", "/tmp/in.txt",
			},
		},
		{
			name: "no script",
			mutate: func(s *Snapshot) {
				s.Script = ""
				s.Args = nil
			},
			want: []string{"python3", "-f", "/tmp/in.txt"},
		},
		{
			name: "empty flag drops its group",
			mutate: func(s *Snapshot) {
				s.OffFlag = ""
				s.Options = map[string]bool{"apos": true, "nbsp": false}
			},
			want: []string{
				"python3", "/opt/grammalecte/grammalecte-cli.py", "-j", "-cl", "-owe", "-ctx",
				"-on", "apos", "-f", "/tmp/in.txt",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := grammalecte()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			assert.Equal(t, tt.want, s.Command("/tmp/in.txt"))
		})
	}
}

func TestSnapshot_Validate(t *testing.T) {
	require.NoError(t, grammalecte().Validate())

	s := grammalecte()
	s.Executable = ""
	assert.ErrorIs(t, s.Validate(), ErrInvalidSnapshot)

	s = grammalecte()
	s.FileFlag = ""
	assert.ErrorIs(t, s.Validate(), ErrInvalidSnapshot)

	s = grammalecte()
	s.Args = []string{"-j", ""}
	assert.ErrorIs(t, s.Validate(), ErrInvalidSnapshot)
}

func TestIsLocalOption(t *testing.T) {
	assert.True(t, IsLocalOption("_orth_"))
	assert.True(t, IsLocalOption("_x_"))
	assert.False(t, IsLocalOption("__"))
	assert.False(t, IsLocalOption("_"))
	assert.False(t, IsLocalOption("apos"))
	assert.False(t, IsLocalOption("_apos"))
}

func TestSnapshot_KeyAndEqual(t *testing.T) {
	a := grammalecte()
	a.Options = map[string]bool{"apos": true, "nbsp": false}
	b := grammalecte()
	b.Options = map[string]bool{"nbsp": false, "apos": true}
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	b.Options["apos"] = false
	assert.False(t, a.Equal(b))

	c := grammalecte()
	c.Args = []string{"-j", "-cl"}
	assert.False(t, grammalecte().Equal(c))
}
