package store

import (
	"os"
	"path/filepath"
	"time"

	"RemoteDisplay/consts"
	"RemoteDisplay/models/mode"

	"github.com/fwhezfwhez/errorx"
	bolt "go.etcd.io/bbolt"
)

// Publisher makes the resolved mode visible to observers outside the process.
type Publisher interface {
	Publish(m mode.StreamingMode) error
}

// BoltPublisher keeps the published mode record in a bbolt file. The file is
// opened per write so other processes can read it between writes.
type BoltPublisher struct {
	Path    string
	Timeout time.Duration
}

func NewBoltPublisher(path string) *BoltPublisher {
	return &BoltPublisher{
		Path:    path,
		Timeout: time.Second,
	}
}

func (p *BoltPublisher) Publish(m mode.StreamingMode) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
		return errorx.Wrap(err)
	}

	db, err := bolt.Open(p.Path, 0644, &bolt.Options{Timeout: p.Timeout})
	if err != nil {
		return errorx.Wrap(err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(consts.ModeBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(consts.ModeKey), []byte(m))
	})
	if err != nil {
		return errorx.Wrap(err)
	}
	return nil
}

// ReadMode returns the published mode record, or "" when nothing was published yet.
func ReadMode(path string) (string, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return "", errorx.Wrap(err)
	}
	defer db.Close()

	var value string
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(consts.ModeBucket))
		if bucket == nil {
			return nil
		}
		value = string(bucket.Get([]byte(consts.ModeKey)))
		return nil
	})
	if err != nil {
		return "", errorx.Wrap(err)
	}
	return value, nil
}
