package proxy

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// watchLabels reloads the labels file when it changes on disk, so labels
// edited by external tools show up without a restart. Watches the parent
// directory: editors replace the file rather than write in place.
func (p *Proxy) watchLabels() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("watch: %v", err)
		return
	}
	defer watcher.Close()
	dir := filepath.Dir(p.cfg.LabelsFile)
	if err := watcher.Add(dir); err != nil {
		log.Printf("watch: adding %s: %v", dir, err)
		return
	}
	target := filepath.Clean(p.cfg.LabelsFile)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			labels, err := mapdb.LoadLabels(p.cfg.LabelsFile)
			if err != nil {
				log.Printf("watch: reloading labels: %v", err)
				continue
			}
			p.worldMu.Lock()
			p.world.Labels = labels
			repaired := p.world.CoerceDangling()
			p.worldMu.Unlock()
			log.Printf("watch: reloaded %d labels (%d dangling dropped)", len(labels), repaired)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}
