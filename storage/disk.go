package storage

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// DiskStore implements Store. Values live in one file per key under a root
// directory. Keys are hex-encoded in file names so that keys taken from
// request paths can't escape the root.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) Put(key string, value []byte) (err error) {
	valpath := s.pathFor(key)
	err = ioutil.WriteFile(valpath, value, 0600)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	if err = os.MkdirAll(filepath.Dir(valpath), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	return ioutil.WriteFile(valpath, value, 0600)
}

func (s *DiskStore) Get(key string) (value []byte, err error) {
	value, err = ioutil.ReadFile(s.pathFor(key))
	if os.IsNotExist(err) {
		err = fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	return
}

func (s *DiskStore) Delete(key string) (err error) {
	err = os.Remove(s.pathFor(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *DiskStore) Keys() (keys []string, err error) {
	err = filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		key, err := hex.DecodeString(filepath.Base(path))
		if err != nil {
			// Not one of ours.
			return nil
		}
		keys = append(keys, string(key))
		return nil
	})
	if os.IsNotExist(err) {
		// The root is only created by the first put.
		return nil, nil
	}
	return keys, err
}

func (s *DiskStore) pathFor(key string) string {
	// Prevent ENAMETOOLONG, while retaining low probability of clashes.
	// The empty key takes the hash path too, as "" is no file name.
	b := []byte(key)
	if len(b) == 0 || len(b) > sha512.Size {
		hash := sha512.Sum512(b)
		b = hash[:]
	}
	hexKey := fmt.Sprintf("%02x", b)
	return filepath.Join(s.dir, hexKey[:2], hexKey)
}
