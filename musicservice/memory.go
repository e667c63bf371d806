package musicservice

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Memory is an in-process Client. Every ID resolves to "memory:track:<id>"
// unless it is listed in Unavailable. It records the size of each batch it
// receives.
type Memory struct {
	// Unavailable holds IDs Resolve does not know.
	Unavailable map[string]bool

	mu        sync.Mutex
	playlists map[string]*memoryPlaylist
	nextID    int
	batches   []int
}

type memoryPlaylist struct {
	Playlist
	public bool
	refs   []string
}

// NewMemory creates an empty service.
func NewMemory() *Memory {
	return &Memory{playlists: make(map[string]*memoryPlaylist)}
}

// Ref returns the reference Memory resolves id to.
func (m *Memory) Ref(id string) string { return "memory:track:" + id }

func (m *Memory) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if !m.Unavailable[id] {
			out[id] = m.Ref(id)
		}
	}
	return out, nil
}

func (m *Memory) CreatePlaylist(ctx context.Context, title, _ string, public bool) (Playlist, error) {
	if err := ctx.Err(); err != nil {
		return Playlist{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("pl%d", m.nextID)
	p := &memoryPlaylist{
		Playlist: Playlist{ID: id, URL: "memory://playlist/" + id, Title: title},
		public:   public,
	}
	m.playlists[id] = p
	return p.Playlist, nil
}

func (m *Memory) AddTracks(ctx context.Context, playlistID string, refs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.playlists[playlistID]
	if !ok {
		return ErrPlaylistNotFound
	}
	for batch := range Batches(refs, MaxBatch) {
		m.batches = append(m.batches, len(batch))
		p.refs = append(p.refs, batch...)
	}
	return nil
}

func (m *Memory) RemoveTracks(ctx context.Context, playlistID string, refs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.playlists[playlistID]
	if !ok {
		return ErrPlaylistNotFound
	}
	for batch := range Batches(refs, MaxBatch) {
		m.batches = append(m.batches, len(batch))
		p.refs = slices.DeleteFunc(p.refs, func(r string) bool { return slices.Contains(batch, r) })
	}
	return nil
}

// Tracks returns the references in a playlist.
func (m *Memory) Tracks(playlistID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.playlists[playlistID]; ok {
		return slices.Clone(p.refs)
	}
	return nil
}

// Batches returns the sizes of all add and remove batches received so far.
func (m *Memory) Batches() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.batches)
}
