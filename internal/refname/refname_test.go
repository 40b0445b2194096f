package refname_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/refname"
)

func TestEncode(t *testing.T) {
	codec := refname.NewCodec("prstack")

	require.Equal(t, "prstack/main/a1b2c3d4", codec.Encode("main", "a1b2c3d4"))
	require.Equal(t, "prstack/main/a1b2c3d4_01", codec.EncodeRevision("main", "a1b2c3d4", 1))
	require.Equal(t, "prstack/main/a1b2c3d4_12", codec.EncodeRevision("main", "a1b2c3d4", 12))
}

func TestDecode(t *testing.T) {
	codec := refname.NewCodec("prstack")

	t.Run("round trips the current revision", func(t *testing.T) {
		for _, target := range []string{"main", "release/1.x", "team/feature/base"} {
			parts, ok := codec.Decode(codec.Encode(target, "deadbeef"))
			require.True(t, ok)
			require.Equal(t, refname.Parts{TargetRef: target, CommitID: "deadbeef"}, parts)
			require.False(t, parts.IsRevision())
		}
	})

	t.Run("decodes revision suffixes", func(t *testing.T) {
		for _, rev := range []int{1, 2, 9, 10, 42} {
			parts, ok := codec.Decode(codec.EncodeRevision("release/2.0", "cafe1234", rev))
			require.True(t, ok)
			require.Equal(t, "release/2.0", parts.TargetRef)
			require.Equal(t, "cafe1234", parts.CommitID)
			require.Equal(t, rev, parts.Revision)
			require.True(t, parts.IsRevision())
		}
	})

	t.Run("keeps underscores that are not revision suffixes", func(t *testing.T) {
		parts, ok := codec.Decode("prstack/main/abc_def")
		require.True(t, ok)
		require.Equal(t, "abc_def", parts.CommitID)
		require.Equal(t, 0, parts.Revision)
	})

	t.Run("rejects names with another prefix", func(t *testing.T) {
		_, ok := codec.Decode("feature/main/abc")
		require.False(t, ok)

		_, ok = codec.Decode("prstackx/main/abc")
		require.False(t, ok)

		_, ok = codec.Decode("main")
		require.False(t, ok)
	})

	t.Run("rejects names without a commit id segment", func(t *testing.T) {
		_, ok := codec.Decode("prstack/main")
		require.False(t, ok)
	})

	t.Run("canonical strips the revision", func(t *testing.T) {
		parts, ok := codec.Decode("prstack/main/abc_03")
		require.True(t, ok)
		require.Equal(t, "prstack/main/abc", codec.Canonical(parts))
	})
}

func TestDefaultPrefix(t *testing.T) {
	codec := refname.NewCodec("")
	require.Equal(t, refname.DefaultPrefix, codec.Prefix())
	require.Equal(t, "prstack/main/x", codec.Encode("main", "x"))
}

func TestPrefixIsLiteral(t *testing.T) {
	codec := refname.NewCodec("my.stack")

	_, ok := codec.Decode("myxstack/main/abc")
	require.False(t, ok)

	parts, ok := codec.Decode("my.stack/main/abc")
	require.True(t, ok)
	require.Equal(t, "abc", parts.CommitID)
}
