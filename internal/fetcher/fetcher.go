package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"apod_etl/internal/config"
	"apod_etl/internal/logger"
)

// Endpoint — фиксированный путь APOD относительно хоста соединения.
const Endpoint = "planetary/apod"

const maxErrorBody = 512

var (
	ErrNoAPIKey = errors.New("connection has no api_key")
	ErrRequest  = errors.New("apod request failed")
	ErrStatus   = errors.New("apod returned non-success status")
	ErrDecode   = errors.New("apod response is not valid json")
)

// StatusError возвращается при ответе с кодом вне диапазона 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Client выполняет GET-запрос к APOD. Хост и api_key разрешаются через
// ConnectionProvider при каждом вызове Fetch.
type Client struct {
	http      *http.Client
	conns     config.ConnectionProvider
	connID    string
	userAgent string
}

// NewClient создаёт Client. Если httpClient равен nil, используется клиент с таймаутом 30 секунд.
func NewClient(httpClient *http.Client, conns config.ConnectionProvider, connID, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:      httpClient,
		conns:     conns,
		connID:    connID,
		userAgent: userAgent,
	}
}

// Fetch загружает запись APOD и возвращает тело ответа, декодированное из JSON.
// Непустой date (YYYY-MM-DD) передаётся параметром date.
func (c *Client) Fetch(ctx context.Context, date string) (any, error) {
	conn, err := c.conns.Connection(c.connID)
	if err != nil {
		return nil, err
	}
	apiKey := conn.ExtraString("api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAPIKey, c.connID)
	}

	u, err := url.Parse(conn.BaseURL() + "/" + Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	q := u.Query()
	q.Set("api_key", apiKey)
	if date != "" {
		q.Set("date", date)
	}
	u.RawQuery = q.Encode()

	log := logger.Log.WithField("url", redact(u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	log.Debug("Fetching APOD")
	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error содержит полный адрес вместе с ключом.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var payload any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	// тело должно содержать ровно одно JSON-значение
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after json value", ErrDecode)
	}

	log.WithField("status", resp.StatusCode).Debug("APOD fetched")
	return payload, nil
}

func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
	}
	c.RawQuery = q.Encode()
	return c.String()
}
