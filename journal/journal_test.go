package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func raidEvents(raidID string, baseID uint64) []Event {
	at := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	return []Event{
		{Kind: Departed, RaidID: raidID, BaseID: baseID, Attacker: "Raider1", Time: at},
		{Kind: Stole, RaidID: raidID, BaseID: baseID, Attacker: "Raider1", Resource: "wood", Amount: 100, Time: at},
		{Kind: Departed, RaidID: raidID, BaseID: baseID, Attacker: "Raider3", Time: at},
		{Kind: Stole, RaidID: raidID, BaseID: baseID, Attacker: "Raider3", Resource: "stone", Amount: 50, Time: at},
		{Kind: Deducted, RaidID: raidID, BaseID: baseID, Resource: "wood", Amount: 100, Time: at},
		{Kind: Deducted, RaidID: raidID, BaseID: baseID, Resource: "stone", Amount: 50, Time: at},
		{Kind: Completed, RaidID: raidID, BaseID: baseID, Attackers: []string{"Raider1", "Raider3"}, Stolen: map[string]int{"wood": 100, "stone": 50}, Time: at},
	}
}

func TestEventString(t *testing.T) {
	events := raidEvents("r1", 4)

	require.Equal(t, "Raider1 is heading out to raid base 4...", events[0].String())
	require.Equal(t, "Raider1 stole 100 wood!", events[1].String())
	require.Equal(t, "100 wood stolen. Removing from base 4...", events[4].String())
	require.Equal(t, "Raid on base 4 is over.", events[6].String())
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	sink := Multi(a, nil, b)

	for _, e := range raidEvents("r1", 1) {
		sink.Emit(e)
	}

	require.Len(t, a.Events, 7)
	require.Equal(t, a.Events, b.Events)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSinkWith(zerolog.New(&buf))

	sink.Emit(raidEvents("r1", 4)[1])

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "Raider1 stole 100 wood!", line["message"])
	require.Equal(t, "wood", line["resource"])
	require.Equal(t, float64(100), line["amount"])
	require.Equal(t, "r1", line["raid"])
}

func TestFileJournal(t *testing.T) {
	t.Run("round trips events through zstd", func(t *testing.T) {
		dir := t.TempDir()
		j := NewFileJournal(dir, "raids")
		j.now = func() time.Time { return time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC) }

		events := raidEvents("r1", 1)
		for _, e := range events {
			require.NoError(t, j.Write(e))
		}
		require.NoError(t, j.Close())

		got, err := ReadFile(j.PathForHour("2026-10-17-12"))
		require.NoError(t, err)
		require.Equal(t, events, got)
	})

	t.Run("rotates by hour and appends on reopen", func(t *testing.T) {
		dir := t.TempDir()
		j := NewFileJournal(dir, "raids")
		now := time.Date(2026, 10, 17, 12, 59, 0, 0, time.UTC)
		j.now = func() time.Time { return now }

		events := raidEvents("r1", 1)
		require.NoError(t, j.Write(events[0]))
		now = now.Add(2 * time.Minute)
		require.NoError(t, j.Write(events[1]))
		now = now.Add(-2 * time.Minute)
		require.NoError(t, j.Write(events[2]))
		require.NoError(t, j.Close())

		first, err := ReadFile(filepath.Join(dir, "raids-2026-10-17-12.jsonl.zst"))
		require.NoError(t, err)
		require.Equal(t, []Event{events[0], events[2]}, first)
		second, err := ReadFile(filepath.Join(dir, "raids-2026-10-17-13.jsonl.zst"))
		require.NoError(t, err)
		require.Equal(t, []Event{events[1]}, second)
	})
}

func TestSQLiteIndex(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "raids.db"))
	require.NoError(t, err)
	defer idx.Close()

	for _, e := range raidEvents("r1", 4) {
		idx.Emit(e)
	}
	for _, e := range raidEvents("r2", 4) {
		idx.Emit(e)
	}
	for _, e := range raidEvents("r3", 5) {
		idx.Emit(e)
	}
	idx.Sync()

	ctx := context.Background()
	n, err := idx.RaidCount(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	totals, err := idx.DeductedTotals(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"wood": 200, "stone": 100}, totals)

	thefts, err := idx.Thefts(ctx, "r3")
	require.NoError(t, err)
	require.Equal(t, 2, thefts)
	require.Zero(t, idx.Dropped())

	require.NoError(t, idx.Close())
	idx.Emit(raidEvents("r4", 4)[1]) // Ignored after close
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	require.Error(t, err)
}

func TestFeed(t *testing.T) {
	feed := NewFeed()
	srv := httptest.NewServer(feed.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Clients() == 1 }, time.Second, time.Millisecond)

	sent := raidEvents("r1", 9)[1]
	feed.Emit(sent)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal(msg, &got))
	require.Equal(t, sent, got)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return feed.Clients() == 0 }, time.Second, time.Millisecond)
}

func TestFeedRejectsRemoteObservers(t *testing.T) {
	feed := NewFeed()
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	rw := httptest.NewRecorder()

	feed.Handler()(rw, req)

	require.Equal(t, http.StatusForbidden, rw.Code)
}
