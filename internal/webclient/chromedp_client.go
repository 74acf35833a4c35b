package webclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/raysh454/observer/internal/logging"
)

// ChromedpClient renders pages in headless Chrome. Only GET is supported.
type ChromedpClient struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	idleAfter   time.Duration
	timeout     time.Duration
	logger      logging.Logger
}

func NewChromedpClient(cfg Config, logger logging.Logger) (*ChromedpClient, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(cfg.userAgent()))
	if cfg.Headless != nil && !*cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	idleAfter := cfg.IdleAfter
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	componentLogger := logging.OrNop(logger).With(logging.Field{Key: "backend", Value: "chromedp"})
	componentLogger.Debug("created chromedp webclient", logging.Field{Key: "idle_after", Value: idleAfter.String()})

	return &ChromedpClient{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		idleAfter:   idleAfter,
		timeout:     cfg.timeout(),
		logger:      componentLogger,
	}, nil
}

// waitNetworkIdle signals once no request has been in flight for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) (<-chan struct{}, func()) {
	idleChan := make(chan struct{}, 1)
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { idleChan <- struct{}{} })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	return idleChan, startTimer
}

func (cdc *ChromedpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if m := strings.ToUpper(req.Method); m != "" && m != http.MethodGet {
		return nil, fmt.Errorf("chromedp backend supports GET only, got %s", m)
	}

	tabCtx, cancel := chromedp.NewContext(cdc.allocCtx)
	defer cancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, cdc.timeout)
	defer timeoutCancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		docMu      sync.Mutex
		docStatus  int64
		docHeaders network.Headers
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		docMu.Lock()
		defer docMu.Unlock()
		if docStatus == 0 {
			docStatus = e.Response.Status
			docHeaders = e.Response.Headers
		}
	})
	idle, kick := waitNetworkIdle(tabCtx, cdc.idleAfter)

	extra := network.Headers{}
	for k, vs := range req.Headers {
		if len(vs) > 0 {
			extra[k] = vs[0]
		}
	}

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(extra),
		chromedp.Navigate(req.URL),
	); err != nil {
		return nil, fmt.Errorf("chromedp navigate: %w", err)
	}
	kick()

	select {
	case <-idle:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("chromedp wait idle: %w", tabCtx.Err())
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("chromedp outer html: %w", err)
	}

	docMu.Lock()
	status := int(docStatus)
	headers := make(http.Header, len(docHeaders))
	for k, v := range docHeaders {
		headers.Set(k, fmt.Sprint(v))
	}
	docMu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}

	return &Response{
		Request:    req,
		Headers:    headers,
		Body:       []byte(html),
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (cdc *ChromedpClient) Get(ctx context.Context, url string) (*Response, error) {
	return cdc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (cdc *ChromedpClient) Close() error {
	cdc.allocCancel()
	return nil
}
