package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	dailyFilesLock sync.Mutex
	dailyFiles     = make(map[string]*dailyFile)
)

// sharedDailyFile 同一目录下的所有 logger 共用一个 writer，避免重复打开文件。
func sharedDailyFile(dir string) *dailyFile {
	dailyFilesLock.Lock()
	defer dailyFilesLock.Unlock()

	f, ok := dailyFiles[dir]
	if !ok {
		f = &dailyFile{dir: dir, now: time.Now}
		dailyFiles[dir] = f
	}
	return f
}

// dailyFile 按天切分的日志文件，文件名形如 2006-01-02.log。
type dailyFile struct {
	lock sync.Mutex
	dir  string
	now  func() time.Time

	date string
	file *os.File
}

func (f *dailyFile) Write(p []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	date := f.now().Format("2006-01-02")
	if f.file == nil || date != f.date {
		if err := f.rotate(date); err != nil {
			return 0, err
		}
	}

	return f.file.Write(p)
}

func (f *dailyFile) rotate(date string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Join(f.dir, date+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	if f.file != nil {
		_ = f.file.Close()
	}
	f.file = file
	f.date = date
	return nil
}
