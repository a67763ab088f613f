package persistence

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/lkarlslund/pathcost/modules/cli"
	"github.com/ugorji/go/codec"
	"go.etcd.io/bbolt"
)

var (
	datastore *bbolt.DB
	dbLock    sync.Mutex
	mh        codec.JsonHandle

	ErrNotFound = errors.New("key not found")
)

// Open switches the package to the database at path. Mostly for tests, the
// commands use the default location in the data path.
func Open(path string) (*bbolt.DB, error) {
	dbLock.Lock()
	defer dbLock.Unlock()
	return open(path)
}

// open must be called with dbLock held
func open(path string) (*bbolt.DB, error) {
	if datastore != nil {
		datastore.Close()
		datastore = nil
	}
	db, err := bbolt.Open(path, 0666, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	datastore = db
	return db, nil
}

func Close() error {
	dbLock.Lock()
	defer dbLock.Unlock()
	if datastore == nil {
		return nil
	}
	err := datastore.Close()
	datastore = nil
	return err
}

func getDB() (*bbolt.DB, error) {
	dbLock.Lock()
	defer dbLock.Unlock()
	if datastore != nil {
		return datastore, nil
	}
	return open(filepath.Join(*cli.Datapath, "persistence.bbolt"))
}

// Objects must be able to return a unique key
type Identifiable interface {
	ID() string
}

// Objects can be able to have default values, triggered by calling Default
type Defaulter interface {
	Default()
}

type Store[i Identifiable] struct {
	db         *bbolt.DB
	cache      map[string]i
	cacheLock  *sync.RWMutex
	bucketname []byte
}

func GetStorage[i Identifiable](bucketname string, cached bool) (Store[i], error) {
	db, err := getDB()
	if err != nil {
		return Store[i]{}, err
	}
	return NewStore[i](db, bucketname, cached), nil
}

func NewStore[i Identifiable](db *bbolt.DB, bucketname string, cached bool) Store[i] {
	s := Store[i]{
		db:         db,
		bucketname: []byte(bucketname),
		cacheLock:  &sync.RWMutex{},
	}
	if cached {
		s.cache = make(map[string]i)
	}
	return s
}

func (s Store[p]) Get(id string) (*p, bool) {
	if s.cache != nil {
		s.cacheLock.RLock()
		rv, found := s.cache[id]
		s.cacheLock.RUnlock()
		if found {
			return &rv, true
		}
	}

	var data []byte
	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucketname)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(id)); v != nil {
			// only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}

	var result p
	if isDefaulter, ok := any(&result).(Defaulter); ok {
		isDefaulter.Default()
	}
	if err := codec.NewDecoderBytes(data, &mh).Decode(&result); err != nil {
		return nil, false
	}
	if s.cache != nil {
		s.cacheLock.Lock()
		s.cache[id] = result
		s.cacheLock.Unlock()
	}
	return &result, true
}

func (s Store[p]) Put(saveme p) error {
	id := saveme.ID()
	if id == "" {
		return errors.New("empty ID")
	}
	var output []byte
	if err := codec.NewEncoderBytes(&output, &mh).Encode(saveme); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucketname)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), output)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cacheLock.Lock()
		s.cache[id] = saveme
		s.cacheLock.Unlock()
	}
	return nil
}

func (s Store[p]) Delete(id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucketname)
		if b == nil || b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
	if err == nil && s.cache != nil {
		s.cacheLock.Lock()
		delete(s.cache, id)
		s.cacheLock.Unlock()
	}
	return err
}

// List returns every stored object in key order
func (s Store[p]) List() ([]p, error) {
	var result []p
	return result, s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucketname)
		if b == nil {
			return nil
		}
		result = make([]p, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var data p
			if isDefaulter, ok := any(&data).(Defaulter); ok {
				isDefaulter.Default()
			}
			if err := codec.NewDecoderBytes(v, &mh).Decode(&data); err != nil {
				return err
			}
			result = append(result, data)
			return nil
		})
	})
}
