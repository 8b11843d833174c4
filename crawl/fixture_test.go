package crawl_test

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/crawl"
	"github.com/fwojciec/lawdoc/mock"
)

const listURL = "https://search.mnr.gov.cn/was5/web/search"

// site simulates one or more portals: list pages per source, detail
// responses per URL, and a ledger and writer that keep everything in
// memory.
type site struct {
	mu sync.Mutex

	// pages maps source name to its list pages, page 1 first.
	pages map[string][][]*lawdoc.DocumentStub

	// broken marks sources whose list pages cannot be parsed.
	broken map[string]bool

	// respond returns the error for the nth (1-based) fetch of a detail
	// URL, or nil to serve the page.
	respond func(url string, n int) error

	fetches  map[string]int
	sessions int
	closed   int
	done     map[lawdoc.Key]*lawdoc.Completion
	failures map[lawdoc.Key]*lawdoc.Failure
	marks    []lawdoc.Failure
	written  []*lawdoc.DocumentRecord
	slept    []time.Duration

	// onWrite, if set, runs before a record is accepted by the writer.
	onWrite func(rec *lawdoc.DocumentRecord)
}

func newSite() *site {
	return &site{
		pages:    make(map[string][][]*lawdoc.DocumentStub),
		broken:   make(map[string]bool),
		fetches:  make(map[string]int),
		done:     make(map[lawdoc.Key]*lawdoc.Completion),
		failures: make(map[lawdoc.Key]*lawdoc.Failure),
	}
}

func stubs(source string, ids ...string) []*lawdoc.DocumentStub {
	var out []*lawdoc.DocumentStub
	for _, id := range ids {
		out = append(out, &lawdoc.DocumentStub{
			SourceID:   source,
			DocumentID: id,
			Title:      "关于" + id + "的通知",
			DetailURL:  "https://" + source + ".mnr.gov.cn/" + id + ".html",
		})
	}
	return out
}

func source(name string) lawdoc.SourceConfig {
	return lawdoc.SourceConfig{
		Name:           name,
		Adapter:        "mock",
		BaseURL:        "https://" + name + ".mnr.gov.cn/",
		SearchEndpoint: listURL,
		ChannelID:      "174757",
		Enabled:        true,
		PageSize:       2,
	}
}

func (s *site) listFetches(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[listURL+"?source="+name]
}

func (s *site) detailFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for u, c := range s.fetches {
		if !strings.HasPrefix(u, listURL) {
			n += c
		}
	}
	return n
}

func (s *site) adapter(src *lawdoc.SourceConfig) *mock.Adapter {
	name := src.Name
	return &mock.Adapter{
		ListRequestFn: func(page int) *lawdoc.Request {
			return &lawdoc.Request{URL: listURL + "?source=" + name, Params: url.Values{"page": {strconv.Itoa(page)}}}
		},
		ParseListFn: func(page int, body []byte) (*lawdoc.ListPage, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.broken[name] {
				return nil, lawdoc.Errorf(lawdoc.EINVALID, "no result list")
			}
			pages := s.pages[name]
			if page > len(pages) {
				return &lawdoc.ListPage{}, nil
			}
			return &lawdoc.ListPage{Stubs: pages[page-1], HasMore: page < len(pages)}, nil
		},
		DetailRequestFn: func(stub *lawdoc.DocumentStub) *lawdoc.Request {
			return &lawdoc.Request{URL: stub.DetailURL}
		},
		ExtractDetailFn: func(stub *lawdoc.DocumentStub, html string) (*lawdoc.DocumentRecord, error) {
			if html == "" {
				return nil, lawdoc.Errorf(lawdoc.EINVALID, "empty page")
			}
			return &lawdoc.DocumentRecord{
				SourceID:   stub.SourceID,
				DocumentID: stub.DocumentID,
				Title:      stub.Title,
				BodyText:   html,
			}, nil
		},
	}
}

func (s *site) session() *mock.Session {
	return &mock.Session{
		FetchFn: func(_ context.Context, req *lawdoc.Request) ([]byte, error) {
			s.mu.Lock()
			s.fetches[req.URL]++
			n := s.fetches[req.URL]
			respond := s.respond
			s.mu.Unlock()

			if strings.HasPrefix(req.URL, listURL) {
				return []byte("<html>结果列表</html>"), nil
			}
			if respond != nil {
				if err := respond(req.URL, n); err != nil {
					return nil, err
				}
			}
			return []byte("第一条 正文。"), nil
		},
		CloseFn: func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.closed++
			return nil
		},
	}
}

func (s *site) ledger() *mock.Ledger {
	return &mock.Ledger{
		IsDoneFn: func(_ context.Context, key lawdoc.Key) (bool, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.done[key] != nil, nil
		},
		MarkDoneFn: func(_ context.Context, c *lawdoc.Completion) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			cp := *c
			s.done[c.Key] = &cp
			delete(s.failures, c.Key)
			return nil
		},
		MarkFailedFn: func(_ context.Context, f *lawdoc.Failure) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			key := f.Stub.Key()
			if prev := s.failures[key]; prev != nil {
				f.AttemptCount = prev.AttemptCount + 1
			} else {
				f.AttemptCount = 1
			}
			cp := *f
			s.failures[key] = &cp
			s.marks = append(s.marks, cp)
			return nil
		},
		FailedItemsFn: func(_ context.Context, sourceID string) ([]*lawdoc.Failure, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var out []*lawdoc.Failure
			for _, f := range s.failures {
				if sourceID == "" || f.Stub.SourceID == sourceID {
					cp := *f
					out = append(out, &cp)
				}
			}
			slices.SortFunc(out, func(a, b *lawdoc.Failure) int {
				return strings.Compare(a.Stub.DocumentID, b.Stub.DocumentID)
			})
			return out, nil
		},
	}
}

func (s *site) writer() *mock.RecordWriter {
	return &mock.RecordWriter{
		WriteRecordFn: func(_ context.Context, rec *lawdoc.DocumentRecord, _ lawdoc.Downloader) (*lawdoc.WriteResult, error) {
			if s.onWrite != nil {
				s.onWrite(rec)
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			s.written = append(s.written, rec)
			return &lawdoc.WriteResult{Number: len(s.written)}, nil
		},
	}
}

func (s *site) crawler() *crawl.Crawler {
	return &crawl.Crawler{
		Adapters: &mock.AdapterRegistry{
			AdapterFn: func(src *lawdoc.SourceConfig) (lawdoc.Adapter, error) {
				if src.Adapter != "mock" {
					return nil, lawdoc.Errorf(lawdoc.ECONFIG, "unknown adapter %q", src.Adapter)
				}
				return s.adapter(src), nil
			},
		},
		Sessions: &mock.SessionFactory{
			NewSessionFn: func(*lawdoc.SourceConfig) (lawdoc.Session, error) {
				s.mu.Lock()
				s.sessions++
				s.mu.Unlock()
				return s.session(), nil
			},
		},
		Ledger:         s.ledger(),
		Writer:         s.writer(),
		Concurrency:    2,
		MaxAttempts:    3,
		RetryDelay:     time.Second,
		RateLimitDelay: time.Minute,
		MaxEmptyPages:  2,
		Sleep: func(_ context.Context, d time.Duration) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.slept = append(s.slept, d)
			return nil
		},
	}
}

// events collects progress events.
type events struct {
	mu  sync.Mutex
	all []crawl.ProgressEvent
}

func (e *events) record(ev crawl.ProgressEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, ev)
}

func (e *events) phases(documentID string) []crawl.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []crawl.Phase
	for _, ev := range e.all {
		if ev.DocumentID == documentID {
			out = append(out, ev.Phase)
		}
	}
	return out
}

func (e *events) count(phase crawl.Phase) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n int
	for _, ev := range e.all {
		if ev.Phase == phase {
			n++
		}
	}
	return n
}

