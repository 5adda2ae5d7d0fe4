package hosting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatch(t *testing.T) {
	const patch = `diff --git a/internal/cart/totals.go b/internal/cart/totals.go
index abc123..def456 100644
--- a/internal/cart/totals.go
+++ b/internal/cart/totals.go
@@ -1,5 +1,6 @@
 package cart

 func Total() {
-	sum()
+	sum()
+	round()
 }
diff --git a/internal/cart/tax.go b/internal/cart/tax.go
index 111222..333444 100644
--- a/internal/cart/tax.go
+++ b/internal/cart/tax.go
@@ -10,3 +10,2 @@ func Tax() {
 	rate := lookup()
-	rate = clamp(rate)
 	return rate
`

	stats, err := ParsePatch(strings.NewReader(patch))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Additions)
	assert.Equal(t, 2, stats.Deletions)
}

func TestParsePatch_Empty(t *testing.T) {
	stats, err := ParsePatch(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, stats)
}

func TestParsePatch_Garbage(t *testing.T) {
	// Non-diff text has no file headers; go-gitdiff treats it as preamble.
	stats, err := ParsePatch(strings.NewReader("not a diff at all\n"))
	require.NoError(t, err)
	assert.Zero(t, stats)
}
