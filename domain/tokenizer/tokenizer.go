package tokenizer

import (
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/yanyiwu/gojieba"
)

// Span 是按字符（rune）计的左闭右开区间。
type Span struct {
	Start int `json:"span_start"`
	End   int `json:"span_end"`
}

type Tokenizer struct {
	lock  sync.Mutex
	jieba *gojieba.Jieba
}

func dictPaths(dir string) []string {
	if len(dir) == 0 {
		return nil
	}
	return []string{
		filepath.Join(dir, "jieba.dict.utf8"),
		filepath.Join(dir, "hmm_model.utf8"),
		filepath.Join(dir, "user.dict.utf8"),
		filepath.Join(dir, "idf.utf8"),
		filepath.Join(dir, "stop_words.utf8"),
	}
}

func New(dictDir string) *Tokenizer {
	return &Tokenizer{jieba: gojieba.NewJieba(dictPaths(dictDir)...)}
}

func (t *Tokenizer) Free() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.jieba.Free()
}

// runeOffsets 返回每个字节偏移对应的字符偏移，长度为 len(text)+1。
func runeOffsets(text string) []int {
	ret := make([]int, len(text)+1)
	count := 0
	for i := 0; i < len(text); i++ {
		ret[i] = count
		if utf8.RuneStart(text[i]) {
			count++
		}
	}
	ret[len(text)] = count
	return ret
}

// Words 切分 text，返回的片段首尾相接覆盖整个 text。
func (t *Tokenizer) Words(text string) []Span {
	if len(text) == 0 {
		return nil
	}

	t.lock.Lock()
	words := t.jieba.Tokenize(text, gojieba.DefaultMode, true)
	t.lock.Unlock()

	offsets := runeOffsets(text)
	ret := make([]Span, 0, len(words))
	for _, word := range words {
		if word.End <= word.Start {
			continue
		}
		ret = append(ret, Span{Start: offsets[word.Start], End: offsets[word.End]})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Start < ret[j].Start })
	return ret
}

/*
Snap 把 [start, end) 向外扩展到词边界。

区间已经落在词边界上时原样返回；text 为空时原样返回。
*/
func (t *Tokenizer) Snap(text string, start, end int) (int, int) {
	return snapToWords(t.Words(text), start, end)
}

func snapToWords(words []Span, start, end int) (int, int) {
	if len(words) == 0 {
		return start, end
	}

	newStart, newEnd := start, end
	for _, word := range words {
		if word.Start <= start && start < word.End {
			newStart = word.Start
		}
		if word.Start < end && end <= word.End {
			newEnd = word.End
		}
	}
	return newStart, newEnd
}
