package ldfilewatch

import (
	"io/ioutil"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/internal"
	"github.com/lightdeck/go-server-sdk/ldfiledata"
	"github.com/lightdeck/go-server-sdk/ldmodel"
	"github.com/lightdeck/go-server-sdk/sharedtest"
)

func makeTempFile(t *testing.T, initialText string) string {
	f, err := ioutil.TempFile("", "file-source-test")
	require.NoError(t, err)
	f.WriteString(initialText)
	require.NoError(t, f.Close())
	return f.Name()
}

func replaceFileContents(t *testing.T, filename string, text string) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0600)
	require.NoError(t, err)
	f.WriteString(text)
	require.NoError(t, f.Sync())
	f.Close()
}

func requireTrueWithinDuration(t *testing.T, maxTime time.Duration, test func() bool) {
	deadline := time.Now().Add(maxTime)
	for {
		if time.Now().After(deadline) {
			require.FailNowf(t, "Did not see expected change", "waited %v", maxTime)
		}
		if test() {
			return
		}
		time.Sleep(time.Millisecond * 100)
	}
}

func makeDataSource(t *testing.T, factory interfaces.DataSourceFactory) (
	interfaces.DataSource, *sharedtest.MockDataSourceUpdates) {
	updates := sharedtest.NewMockDataSourceUpdates(internal.NewInMemoryDataStore(sharedtest.NullLoggers()))
	dataSource, err := factory.CreateDataSource(sharedtest.NewSimpleTestContext(""), updates)
	require.NoError(t, err)
	return dataSource, updates
}

func hasFlag(t *testing.T, store interfaces.DataStore, key string, test func(ldmodel.FeatureFlag) bool) bool {
	item, err := store.Get(interfaces.DataKindFeatures(), key)
	if assert.NoError(t, err) && item.Item != nil {
		return test(*(item.Item.(*ldmodel.FeatureFlag)))
	}
	return false
}

func TestNewWatchedFileDataSource(t *testing.T) {
	filename := makeTempFile(t, `
---
flags: bad
`)
	defer os.Remove(filename)

	factory := ldfiledata.DataSource().
		FilePaths(filename).
		Reloader(WatchFiles)
	dataSource, updates := makeDataSource(t, factory)
	defer dataSource.Close()

	closeWhenReady := make(chan struct{})
	dataSource.Start(closeWhenReady)

	// Create the flags file after we start
	time.Sleep(time.Second)
	replaceFileContents(t, filename, `
---
flags:
  my-flag:
    "on": true
`)

	<-closeWhenReady

	// Don't use requireTrueWithinDuration here because the expectation is that as soon as the
	// data source reports being ready (which it will only do once we've given it a valid file),
	// the flag should be available immediately.
	assert.True(t, hasFlag(t, updates.DataStore, "my-flag", func(f ldmodel.FeatureFlag) bool {
		return f.On
	}))
	assert.True(t, dataSource.IsInitialized())

	// Update the file
	replaceFileContents(t, filename, `
---
flags:
  my-flag:
    "on": false
`)

	requireTrueWithinDuration(t, time.Second, func() bool {
		return hasFlag(t, updates.DataStore, "my-flag", func(f ldmodel.FeatureFlag) bool {
			return !f.On
		})
	})
}

// File need not exist when the data source is started
func TestNewWatchedFileMissing(t *testing.T) {
	filename := makeTempFile(t, "")
	require.NoError(t, os.Remove(filename))
	defer os.Remove(filename)

	factory := ldfiledata.DataSource().
		FilePaths(filename).
		Reloader(WatchFiles)
	dataSource, updates := makeDataSource(t, factory)
	defer dataSource.Close()

	closeWhenReady := make(chan struct{})
	dataSource.Start(closeWhenReady)

	time.Sleep(time.Second)
	replaceFileContents(t, filename, `
---
flags:
  my-flag:
    "on": true
`)

	<-closeWhenReady

	requireTrueWithinDuration(t, time.Second, func() bool {
		return hasFlag(t, updates.DataStore, "my-flag", func(f ldmodel.FeatureFlag) bool {
			return f.On
		})
	})
	assert.True(t, dataSource.IsInitialized())
}

// Directory needn't exist when the data source is started
func TestNewWatchedDirectoryMissing(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "file-source-test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dirPath := path.Join(tempDir, "test")
	filePath := path.Join(dirPath, "flags.yml")

	factory := ldfiledata.DataSource().
		FilePaths(filePath).
		Reloader(WatchFiles)
	dataSource, updates := makeDataSource(t, factory)
	defer dataSource.Close()

	closeWhenReady := make(chan struct{})
	dataSource.Start(closeWhenReady)

	time.Sleep(time.Second)
	err = os.Mkdir(dirPath, 0700)
	require.NoError(t, err)

	time.Sleep(time.Second)
	replaceFileContents(t, filePath, `
---
flags:
  my-flag:
    "on": true
`)

	<-closeWhenReady

	requireTrueWithinDuration(t, time.Second*2, func() bool {
		return hasFlag(t, updates.DataStore, "my-flag", func(f ldmodel.FeatureFlag) bool {
			return f.On
		})
	})
	assert.True(t, dataSource.IsInitialized())
}
