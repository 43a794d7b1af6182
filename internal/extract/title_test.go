package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitleScheduleParsesHeartPairs(t *testing.T) {
	t.Parallel()

	records := TitleSchedule("❤️수아( 12 13 )❤️유진( 20 21 22 )", DefaultRules())
	require.Len(t, records, 2)
	require.Equal(t, "수아", records[0].Name)
	require.Equal(t, "12,13", records[0].Times)
	require.Equal(t, "유진", records[1].Name)
	require.Equal(t, "20,21,22", records[1].Times)
}

func TestTitleScheduleSkipsDeniedAndShortNames(t *testing.T) {
	t.Parallel()

	records := TitleSchedule("❤️출근부( 1 2 )❤️김( 3 4 )❤️수아( 12 )", DefaultRules())
	require.Len(t, records, 1)
	require.Equal(t, "수아", records[0].Name)
}

func TestTitleScheduleMergesRepeatedName(t *testing.T) {
	t.Parallel()

	records := TitleSchedule("❤️수아( 12 )❤️수아( 14 )", DefaultRules())
	require.Len(t, records, 1)
	require.Equal(t, "12,14", records[0].Times)
}

func TestTitleScheduleNoMarkers(t *testing.T) {
	t.Parallel()

	require.Empty(t, TitleSchedule("오늘의 출근부 안내", DefaultRules()))
}
