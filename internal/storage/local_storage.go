package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage trzyma bloby na lokalnym dysku. Używany w dev i w testach;
// nie wystawia podpisanych adresów URL.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Klucze blobów bywają dowolnymi stringami (zawierają "/"), więc na dysku
// adresujemy po hashu klucza, rozsypanym w podkatalogi.
func (ls *LocalStorage) pathForKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(ls.basePath, name[:2], name[2:4], name)
}

func (ls *LocalStorage) Put(_ context.Context, key string, data io.Reader, _ string) error {
	filePath := ls.pathForKey(key)

	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	return err
}

func (ls *LocalStorage) GetReadStream(_ context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(ls.pathForKey(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}

	return file, nil
}

func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(ls.pathForKey(key))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

func (ls *LocalStorage) PresignedURL(context.Context, string, time.Duration, bool) (string, error) {
	return "", ErrPresignUnsupported
}

func (ls *LocalStorage) Ping(context.Context) error {
	_, err := os.Stat(ls.basePath)
	return err
}
