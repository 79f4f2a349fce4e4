package mapdb

import (
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

// Bucket name constants for the bbolt snapshot cache.
var (
	bucketCacheMeta   = []byte("meta")
	bucketCacheRooms  = []byte("rooms")
	bucketCacheLabels = []byte("labels")
)

var keyCacheSchema = []byte("schema_version")

// Cache is an optional bbolt mirror of the map database. It loads much
// faster than the JSON map file on large maps, so the proxy snapshots the
// world into it after each save and prefers it at startup when present and
// version-compatible.
type Cache struct {
	bolt *bbolt.DB
}

// OpenCache opens or creates a bbolt cache file and ensures the buckets
// exist.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("mapdb: open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCacheMeta, bucketCacheRooms, bucketCacheLabels} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mapdb: create cache buckets: %w", err)
	}
	return &Cache{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (c *Cache) Close() error {
	if c.bolt != nil {
		return c.bolt.Close()
	}
	return nil
}

// Snapshot replaces the cache contents with the given world in a single
// transaction.
func (c *Cache) Snapshot(world *World) error {
	return c.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCacheRooms, bucketCacheLabels} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		rooms := tx.Bucket(bucketCacheRooms)
		for vnum, room := range world.Rooms {
			data, err := json.Marshal(fromRoom(room))
			if err != nil {
				return fmt.Errorf("encode room %s: %w", vnum, err)
			}
			if err := rooms.Put([]byte(vnum), data); err != nil {
				return err
			}
		}
		labels := tx.Bucket(bucketCacheLabels)
		for label, vnum := range world.Labels {
			if err := labels.Put([]byte(label), []byte(vnum)); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketCacheMeta)
		return meta.Put(keyCacheSchema, []byte(fmt.Sprintf("%d", MapSchemaVersion)))
	})
}

// Load rebuilds a World from the cache. Returns ErrUnsupportedSchema if the
// cache was written by an incompatible build.
func (c *Cache) Load() (*World, error) {
	world := NewWorld()
	err := c.bolt.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketCacheMeta)
		version := string(meta.Get(keyCacheSchema))
		if version != fmt.Sprintf("%d", MapSchemaVersion) {
			return fmt.Errorf("%w: cache declares version %q", ErrUnsupportedSchema, version)
		}
		rooms := tx.Bucket(bucketCacheRooms)
		err := rooms.ForEach(func(k, v []byte) error {
			var rec roomRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode room %s: %w", k, err)
			}
			room, err := rec.toRoom(string(k), MapSchemaVersion)
			if err != nil {
				return err
			}
			return world.AddRoom(room)
		})
		if err != nil {
			return err
		}
		labels := tx.Bucket(bucketCacheLabels)
		return labels.ForEach(func(k, v []byte) error {
			world.Labels[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	world.CoerceDangling()
	return world, nil
}
