package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"

	"github.com/arda-maps/gomapper/pkg/events"
	"github.com/arda-maps/gomapper/pkg/mapdb"
	"github.com/arda-maps/gomapper/pkg/mapper"
	"github.com/arda-maps/gomapper/pkg/mpi"
	"github.com/arda-maps/gomapper/pkg/mume"
	"github.com/arda-maps/gomapper/pkg/telnet"
)

// Proxy owns the world model and accepts player connections, relaying each
// one to the game through the protocol stack. One player session runs at a
// time; the world survives across sessions.
type Proxy struct {
	cfg     *Config
	world   *mapdb.World
	metrics *Metrics
	feed    *Feed

	// worldMu is the single sequencing point for world and session state:
	// the event consumer, the labels watcher, and saves all take it.
	worldMu sync.Mutex
}

// New loads the world and prepares a proxy. A corrupt or unsupported map
// file is reported but not fatal: the proxy starts with an empty map.
func New(cfg *Config) *Proxy {
	p := &Proxy{cfg: cfg, metrics: NewMetrics()}
	world := p.loadWorld()
	if labels, err := mapdb.LoadLabels(cfg.LabelsFile); err != nil {
		log.Printf("proxy: loading labels %s: %v", cfg.LabelsFile, err)
	} else {
		world.Labels = labels
		world.CoerceDangling()
	}
	p.world = world
	p.metrics.SetRooms(len(world.Rooms))
	return p
}

// loadWorld restores the world from the bbolt snapshot when it is at least
// as recent as the map file, and otherwise loads the JSON map and refreshes
// the snapshot.
func (p *Proxy) loadWorld() *mapdb.World {
	if p.cfg.CacheFile != "" && cacheFresh(p.cfg.CacheFile, p.cfg.MapFile) {
		if cache, err := mapdb.OpenCache(p.cfg.CacheFile); err != nil {
			log.Printf("proxy: opening cache %s: %v", p.cfg.CacheFile, err)
		} else {
			world, err := cache.Load()
			cache.Close()
			if err == nil {
				log.Printf("proxy: restored %d rooms from cache %s", len(world.Rooms), p.cfg.CacheFile)
				return world
			}
			log.Printf("proxy: cache %s unusable: %v", p.cfg.CacheFile, err)
		}
	}
	world, err := mapdb.LoadMap(p.cfg.MapFile)
	if err != nil {
		log.Printf("proxy: loading map %s: %v (starting with an empty map)", p.cfg.MapFile, err)
		world = mapdb.NewWorld()
	}
	if p.cfg.CacheFile != "" {
		if cache, err := mapdb.OpenCache(p.cfg.CacheFile); err != nil {
			log.Printf("proxy: opening cache %s: %v", p.cfg.CacheFile, err)
		} else {
			if err := cache.Snapshot(world); err != nil {
				log.Printf("proxy: snapshotting cache: %v", err)
			}
			cache.Close()
		}
	}
	return world
}

// cacheFresh reports whether the snapshot is no older than the map file. An
// externally edited map file always wins over the cache.
func cacheFresh(cachePath, mapPath string) bool {
	ci, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	mi, err := os.Stat(mapPath)
	if err != nil {
		return true
	}
	return !ci.ModTime().Before(mi.ModTime())
}

// World exposes the loaded world, for tools and tests.
func (p *Proxy) World() *mapdb.World { return p.world }

// SaveWorld persists the map and labels with the atomic write path.
func (p *Proxy) SaveWorld() error {
	p.worldMu.Lock()
	defer p.worldMu.Unlock()
	if err := mapdb.SaveMap(p.world, p.cfg.MapFile); err != nil {
		return err
	}
	return mapdb.SaveLabels(p.world.Labels, p.cfg.LabelsFile)
}

// ListenAndServe accepts player connections until the listener fails.
func (p *Proxy) ListenAndServe() error {
	ln, err := net.Listen("tcp", p.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", p.cfg.ListenAddr, err)
	}
	if p.cfg.TLS {
		tlsLn, err := WrapListenerTLS(ln, p.cfg)
		if err != nil {
			ln.Close()
			return err
		}
		ln = tlsLn
	}
	if p.cfg.FeedAddr != "" {
		p.feed = NewFeed()
		go p.feed.ListenAndServe(p.cfg.FeedAddr)
	}
	if p.cfg.MetricsAddr != "" {
		go p.metrics.ListenAndServe(p.cfg.MetricsAddr)
	}
	if p.cfg.LabelsFile != "" {
		go p.watchLabels()
	}
	log.Printf("proxy: listening on %s, game at %s", p.cfg.ListenAddr, p.cfg.GameAddr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		p.metrics.ConnectionOpened()
		p.handle(conn)
		if p.cfg.SaveOnExit {
			if err := p.SaveWorld(); err != nil {
				log.Printf("proxy: saving world: %v", err)
			}
		}
	}
}

// side is one half of the relay: a connection plus its telnet decoder and a
// serialized writer.
type side struct {
	name   string
	conn   net.Conn
	parser *telnet.Parser
	wmu    sync.Mutex
}

func (sd *side) write(data []byte) {
	if len(data) == 0 {
		return
	}
	sd.wmu.Lock()
	defer sd.wmu.Unlock()
	if _, err := sd.conn.Write(data); err != nil {
		log.Printf("proxy: writing to %s: %v", sd.name, err)
	}
}

// writeText escapes and normalizes line endings before writing.
func (sd *side) writeText(text string) {
	sd.write(telnet.NormalizeOutbound([]byte(text)))
}

// wireEvents builds the game-event pipeline: the markup parser emits into
// the bus, which fans out to metrics, the optional feed, and the consumer
// queue. The bus also logs event types nothing handles.
func (p *Proxy) wireEvents(queue *events.Queue) *events.Bus {
	bus := events.NewBus()
	bus.SubscribeAll(func(ev events.Event) {
		p.metrics.EventSeen(ev.Type.String())
	})
	if p.feed != nil {
		bus.SubscribeAll(func(ev events.Event) { p.feed.Publish(ev) })
	}
	bus.SubscribeAll(func(ev events.Event) { queue.Put(ev) })
	return bus
}

// handle runs one player session to completion.
func (p *Proxy) handle(playerConn net.Conn) {
	defer playerConn.Close()
	log.Printf("proxy: player connected from %s", playerConn.RemoteAddr())

	gameConn, err := net.Dial("tcp", p.cfg.GameAddr)
	if err != nil {
		log.Printf("proxy: dialing game %s: %v", p.cfg.GameAddr, err)
		fmt.Fprintf(playerConn, "Error connecting to %s: %v\r\n", p.cfg.GameAddr, err)
		return
	}
	defer gameConn.Close()

	player := &side{name: "player", conn: playerConn}
	game := &side{name: "game", conn: gameConn}
	queue := events.NewQueue(p.cfg.EventQueueSize)
	bus := p.wireEvents(queue)

	format, ok := mume.ParseOutputFormat(p.cfg.Format)
	if !ok {
		log.Printf("proxy: unknown output format %q, using plain", p.cfg.Format)
	}
	// In raw mode the player's client parses markup, so mapper-injected
	// text must not be mistaken for tags.
	outputText := func(text string) { player.writeText("\n" + text + "\n") }
	if format == mume.FormatRaw {
		outputText = func(text string) { player.writeText("\n" + mume.Escape(text) + "\n") }
	}

	session := mapper.NewSession(p.world, p.cfg.MapperConfig(),
		outputText,
		func(command string) { game.writeText(command + "\n") },
	)
	session.Save = func() error { return mapdb.SaveMap(p.world, p.cfg.MapFile) }
	session.SaveLabels = func() error { return mapdb.SaveLabels(p.world.Labels, p.cfg.LabelsFile) }

	xml := mume.NewParser(bus.Emit, format)

	mpiHandler := mpi.NewHandler(func(data []byte) { game.write(data) }, &mpi.ExecEditor{
		EditorCommand: p.cfg.Editor,
		PagerCommand:  p.cfg.Pager,
	})

	// Game-side telnet layer: text goes through MPI extraction then the
	// markup parser; whatever survives reaches the player. Charset is
	// negotiated with the game directly; everything else is forwarded so the
	// player's client and the game talk to each other.
	charset := &telnet.Charset{Send: func(data []byte) { game.write(data) }}
	game.parser = &telnet.Parser{
		OnData: func(data []byte) {
			p.metrics.BytesRelayed("game", len(data))
			text := mpiHandler.Feed(data)
			out := xml.Feed(text)
			player.write(telnet.EscapeIAC(out))
		},
		OnGoAhead: func() {
			player.write([]byte{telnet.IAC, telnet.GA})
		},
		OnNegotiation: func(cmd, opt byte) {
			if charset.HandleNegotiation(cmd, opt) {
				return
			}
			player.write(telnet.Negotiation(cmd, opt))
		},
		OnSubnegotiation: func(opt byte, data []byte) {
			if charset.HandleSubnegotiation(opt, data) {
				return
			}
			player.write(telnet.Subnegotiation(opt, data))
		},
	}

	// Player-side telnet layer: complete lines become user-input events so
	// the mapper sees them in order; negotiation is forwarded to the game.
	var lineBuf []byte
	player.parser = &telnet.Parser{
		OnData: func(data []byte) {
			p.metrics.BytesRelayed("player", len(data))
			lineBuf = append(lineBuf, data...)
			for {
				i := bytes.IndexByte(lineBuf, '\n')
				if i < 0 {
					break
				}
				line := string(bytes.TrimRight(lineBuf[:i], "\r\n"))
				lineBuf = append(lineBuf[:0], lineBuf[i+1:]...)
				queue.Put(events.Event{Type: events.EvUserInput, Text: line})
			}
		},
		OnNegotiation: func(cmd, opt byte) {
			game.write(telnet.Negotiation(cmd, opt))
		},
		OnSubnegotiation: func(opt byte, data []byte) {
			game.write(telnet.Subnegotiation(opt, data))
		},
	}

	// Announce MPI support, then ask the game for tagged output and
	// GA-terminated prompts.
	game.write(mpi.Frame(mpi.CmdInit, nil))
	game.write(mpi.XMLModeRequest())
	game.write(mpi.PromptFlagsRequest())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.readLoop(game, func() {
			// Release anything buffered mid-frame, then tear down.
			player.write(telnet.EscapeIAC(xml.Feed(mpiHandler.Flush())))
			player.write(telnet.EscapeIAC(xml.Flush()))
			playerConn.Close()
		})
	}()
	go func() {
		defer wg.Done()
		p.readLoop(player, func() {
			gameConn.Close()
		})
	}()

	// The consumer goroutine is the single sequencing point: every world
	// and session mutation happens here, one event at a time.
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		queue.Run(func(ev events.Event) {
			p.worldMu.Lock()
			defer p.worldMu.Unlock()
			if ev.Type == events.EvUserInput {
				if !session.HandleUserInput(ev.Text) {
					game.writeText(ev.Text + "\n")
				}
				return
			}
			session.HandleEvent(ev)
			p.metrics.SetRooms(len(p.world.Rooms))
			p.metrics.SetSyncState(session.State.String())
		})
	}()

	wg.Wait()
	queue.Close()
	<-consumerDone
	log.Printf("proxy: session ended for %s", playerConn.RemoteAddr())
}

// readLoop pumps one connection into its telnet parser until EOF, then runs
// the teardown hook.
func (p *Proxy) readLoop(sd *side, teardown func()) {
	buf := make([]byte, 4096)
	for {
		n, err := sd.conn.Read(buf)
		if n > 0 {
			sd.parser.Feed(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("proxy: %s read: %v", sd.name, err)
			}
			break
		}
	}
	sd.parser.Flush()
	teardown()
}
