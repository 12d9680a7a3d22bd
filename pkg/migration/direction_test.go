package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": Forward, "forward": Forward, " Reverse ": Reverse} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestTargetPaths(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		src, dst  string
		rel       string
		oldPath   string
		newPath   string
		wantErr   bool
	}{
		{
			name: "Forward", direction: Forward,
			src: "/pnfs/src", dst: "/pnfs/dst", rel: "/a/b/file.dat",
			oldPath: "/pnfs/src/a/b/file.dat", newPath: "/pnfs/dst/T1/a/b/file.dat",
		},
		{
			name: "ForwardTopLevelFile", direction: Forward,
			src: "/pnfs/src", dst: "/pnfs/dst", rel: "/file.dat",
			oldPath: "/pnfs/src/file.dat", newPath: "/pnfs/dst/T1/file.dat",
		},
		{
			name: "Reverse", direction: Reverse,
			src: "/pnfs/dst", dst: "/pnfs/src", rel: "/T1/a/b/file.dat",
			oldPath: "/pnfs/dst/T1/a/b/file.dat", newPath: "/pnfs/src/a/b/file.dat",
		},
		{
			name: "ReverseOutsideTokenTree", direction: Reverse,
			src: "/pnfs/dst", dst: "/pnfs/src", rel: "/T10/file.dat",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldPath, newPath, err := targetPaths(tt.direction, tt.src, tt.dst, "T1", tt.rel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.oldPath, oldPath)
			assert.Equal(t, tt.newPath, newPath)
		})
	}
}

func TestRecordError(t *testing.T) {
	err := &RecordError{Stage: StageRename, ID: "0000AB", Path: "/pnfs/src/f", Err: assert.AnError}
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "rename failed for 0000AB (/pnfs/src/f)")

	listErr := &CatalogError{Err: assert.AnError}
	assert.Contains(t, listErr.Error(), "list space tokens")
}
