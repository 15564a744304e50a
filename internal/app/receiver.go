// ABOUTME: Receiver orchestration
// ABOUTME: Serializes events and chunks and fans store changes out to interpolation, lyrics, artwork and UI
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/artwork"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/interp"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/lyrics"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/reconstruct"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/state"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/ui"
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

// Source delivers decoded events and chunks; both channels close when the
// session ends
type Source interface {
	Events() <-chan protocol.Event
	Chunks() <-chan protocol.Chunk
}

// ChunkHandler turns chunks into audio
type ChunkHandler interface {
	Handle(samples []float32)
	Stats() reconstruct.Stats
}

// LyricsLookup finds lyrics for the current item
type LyricsLookup interface {
	Lookup(ctx context.Context, q lyrics.Query) (lyrics.Lyrics, error)
}

// ArtworkFetcher caches cover art in the background
type ArtworkFetcher interface {
	Fetch(trackID, url string, done func(artwork.Result))
}

// View receives UI updates
type View interface {
	Send(msg tea.Msg)
}

// Graph reports playing buffers
type Graph interface {
	Active() int
}

// Config holds receiver configuration. Only Chunks is required.
type Config struct {
	Interp        interp.Config
	Chunks        ChunkHandler
	Lyrics        LyricsLookup
	Artwork       ArtworkFetcher
	View          View
	Graph         Graph
	StatsInterval time.Duration
	Logger        *slog.Logger
	Metrics       *observe.Metrics
}

type nopView struct{}

func (nopView) Send(tea.Msg) {}

// Receiver wires the playback surface together
type Receiver struct {
	config Config
	log    *slog.Logger
	view   View

	store  *state.Store
	interp *interp.Interpolator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	cursor      *lyrics.Cursor
	cursorTrack string
	lookupGen   uint64
	activeLine  int
	lineText    string

	// events counts applied events only
	events atomic.Int64
	chunks atomic.Int64
}

// New creates a receiver with its own store and interpolator
func New(config Config) *Receiver {
	if config.StatsInterval <= 0 {
		config.StatsInterval = time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Receiver{
		config:     config,
		log:        config.Logger.With("component", "receiver"),
		view:       config.View,
		ctx:        ctx,
		cancel:     cancel,
		activeLine: -1,
	}
	if r.view == nil {
		r.view = nopView{}
	}

	r.store = state.NewStore(state.Config{Logger: config.Logger, Metrics: config.Metrics})

	ic := config.Interp
	ic.OnUpdate = r.onPosition
	if ic.Logger == nil {
		ic.Logger = config.Logger
	}
	if ic.Metrics == nil {
		ic.Metrics = config.Metrics
	}
	r.interp = interp.New(ic)

	r.store.Subscribe(r.onChange)
	return r
}

// Store returns the playback state store
func (r *Receiver) Store() *state.Store {
	return r.store
}

// Interpolator returns the position interpolator
func (r *Receiver) Interpolator() *interp.Interpolator {
	return r.interp
}

// Run dispatches src until both of its channels close or ctx ends. Events
// and chunks are handled on this goroutine only.
func (r *Receiver) Run(ctx context.Context, src Source) error {
	events := src.Events()
	chunks := src.Chunks()

	ticker := time.NewTicker(r.config.StatsInterval)
	defer ticker.Stop()

	for events != nil || chunks != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.dispatch(func() { r.handleEvent(ev) })

		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			r.dispatch(func() { r.handleChunk(chunk) })

		case <-ticker.C:
			r.view.Send(r.Stats())

		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.log.Info("session ended")
	return nil
}

func (r *Receiver) dispatch(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("dispatch panicked", "panic", rec)
		}
	}()
	fn()
}

func (r *Receiver) handleEvent(ev protocol.Event) {
	r.store.Apply(ev)
}

func (r *Receiver) handleChunk(chunk protocol.Chunk) {
	r.chunks.Add(1)
	if r.config.Chunks == nil {
		return
	}
	r.config.Chunks.Handle(chunk.Samples)
}

// Stats returns pipeline counters
func (r *Receiver) Stats() ui.StatsMsg {
	msg := ui.StatsMsg{
		EventsApplied:  r.events.Load(),
		ChunksReceived: r.chunks.Load(),
	}
	if r.config.Chunks != nil {
		msg.ChunksDropped = r.config.Chunks.Stats().Dropped
	}
	if r.config.Graph != nil {
		msg.ActiveBuffers = r.config.Graph.Active()
	}
	return msg
}

// onChange runs on the dispatch goroutine for every applied event
func (r *Receiver) onChange(c state.Change) {
	r.events.Add(1)
	r.view.Send(ui.StateMsg{State: c.Next})
	r.interp.Observe(c)

	if !c.TrackChanged() {
		return
	}

	r.mu.Lock()
	r.cursor = nil
	r.cursorTrack = c.Next.CurrentTrackID
	r.activeLine = -1
	r.lineText = ""
	r.lookupGen++
	gen := r.lookupGen
	r.mu.Unlock()

	item := c.Next.CurrentItem
	if item == nil {
		return
	}

	r.log.Info("now playing", "track_id", item.TrackID, "name", item.Name, "by", item.Subtitle())

	if r.config.Lyrics != nil {
		r.lookupLyrics(gen, item)
	}
	if r.config.Artwork != nil && len(item.Covers) > 0 {
		trackID := item.TrackID
		r.config.Artwork.Fetch(trackID, item.Covers[0], func(res artwork.Result) {
			if res.Err == nil {
				r.view.Send(ui.ArtworkMsg{TrackID: trackID, Path: res.Path})
			}
		})
	}
}

// QueryFor builds the lyric query for item
func QueryFor(item *protocol.AudioItem) lyrics.Query {
	artist := item.ShowName
	if len(item.Artists) > 0 {
		artist = item.Artists[0]
	}
	return lyrics.Query{
		Artist:          artist,
		Track:           item.Name,
		Album:           item.Album,
		DurationSeconds: int(item.DurationMs / 1000),
	}
}

func (r *Receiver) lookupLyrics(gen uint64, item *protocol.AudioItem) {
	query := QueryFor(item)
	trackID := item.TrackID

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		lyr, err := r.config.Lyrics.Lookup(r.ctx, query)
		lyr.TrackID = trackID
		if err != nil {
			r.log.Info("lyrics unavailable", "track_id", trackID, "error", err)
		}

		r.mu.Lock()
		if gen != r.lookupGen {
			r.mu.Unlock()
			return
		}
		if err == nil {
			r.cursor = lyrics.NewCursor(lyr)
		}
		r.mu.Unlock()

		r.view.Send(ui.LyricsMsg{TrackID: trackID, Lyrics: lyr, Err: err})

		if err == nil {
			r.refreshLine(r.interp.Position())
		}
	}()
}

// onPosition receives interpolated positions
func (r *Receiver) onPosition(pos interp.Position) {
	r.view.Send(ui.PositionMsg{Position: pos})
	r.refreshLine(pos)
}

func (r *Receiver) refreshLine(pos interp.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor == nil || pos.TrackID != r.cursorTrack {
		return
	}

	sel := r.cursor.At(pos.DisplayMs, pos.DurationMs)
	if !sel.Synced || sel.Index == r.activeLine {
		return
	}

	r.activeLine = sel.Index
	r.lineText = ""
	if sel.Index >= 0 {
		r.lineText = r.cursor.Lyrics().Synced[sel.Index].Words
		r.log.Info("lyric", "position", formatPosition(pos.DisplayMs), "line", r.lineText)
	}
}

// CurrentLine returns the active synced lyric line, if any
func (r *Receiver) CurrentLine() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLine, r.lineText
}

// Close stops the interpolator and waits for lookups in flight
func (r *Receiver) Close() {
	r.cancel()
	r.interp.Stop()
	r.wg.Wait()
}

func formatPosition(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d.%03d", secs/60, secs%60, ms%1000)
}
