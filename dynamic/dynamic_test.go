package dynamic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yini-lang/yini/dynamic"
	"github.com/yini-lang/yini/value"
)

func TestSetRejectsNonDynamic(t *testing.T) {
	tr := dynamic.NewTracker()
	_, err := tr.Set("Settings", "volume", value.Int(10), true, dynamic.Origin{}, value.Int(20))
	require.Error(t, err)
	var nd *dynamic.NotDynamicError
	require.ErrorAs(t, err, &nd)
}

func TestSetOnDynamicSucceeds(t *testing.T) {
	tr := dynamic.NewTracker()
	d, _ := value.NewDynamic(value.Int(100))
	entry, err := tr.Set("Settings", "volume", d, true, dynamic.Origin{Known: true, Line: 4}, value.Int(75))
	require.NoError(t, err)
	require.Equal(t, value.Int(75), entry.Current)
	require.Equal(t, value.Int(100), entry.History[0])
}

func TestSetAppendsNewDynamicKey(t *testing.T) {
	tr := dynamic.NewTracker()
	entry, err := tr.Set("Settings", "brand_new", nil, false, dynamic.Origin{}, value.String("hi"))
	require.NoError(t, err)
	require.False(t, entry.Origin.Known)
	require.Equal(t, value.String("hi"), entry.Current)
}

func TestHistoryBoundedToFive(t *testing.T) {
	tr := dynamic.NewTracker()
	d, _ := value.NewDynamic(value.Int(0))
	var entry *dynamic.DirtyEntry
	var err error
	entry, err = tr.Set("A", "x", d, true, dynamic.Origin{}, value.Int(1))
	require.NoError(t, err)
	for i := 2; i <= 8; i++ {
		entry, err = tr.Set("A", "x", nil, false, dynamic.Origin{}, value.Int(int64(i)))
		require.NoError(t, err)
	}
	require.LessOrEqual(t, len(entry.History), dynamic.MaxHistory)
	require.Equal(t, value.Int(8), entry.Current)
}

func TestGetReturnsRecordedEntry(t *testing.T) {
	tr := dynamic.NewTracker()
	d, _ := value.NewDynamic(value.Bool(true))
	_, err := tr.Set("A", "flag", d, true, dynamic.Origin{}, value.Bool(false))
	require.NoError(t, err)

	e, ok := tr.Get("A", "flag")
	require.True(t, ok)
	require.Equal(t, value.Bool(false), e.Current)
}
