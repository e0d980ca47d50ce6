// Package supabase implements the repositories over Supabase's PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"
)

const schema = "public"

type Client struct {
	rest   *postgrest.Client
	logger *logrus.Logger
}

// NewClient takes the project URL (https://<ref>.supabase.co) and a service or anon key.
// timeout bounds connecting and waiting for response headers on every request.
func NewClient(projectURL, key string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rest := postgrest.NewClient(strings.TrimRight(projectURL, "/")+"/rest/v1", schema, map[string]string{
		"apikey": key,
	})
	if rest.ClientError != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", rest.ClientError)
	}
	rest.SetAuthToken(key)
	rest.Transport.Parent = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{rest: rest, logger: logger}, nil
}

// exec runs one PostgREST call. postgrest-go takes no context, so
// cancellation is honoured only before the request is sent.
func (c *Client) exec(ctx context.Context, method, table string, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"table":  table,
	}).Debug("Making Supabase request")

	if err := call(); err != nil {
		return fmt.Errorf("supabase %s %s: %w", method, table, err)
	}
	return nil
}

// Ping reads a single carrier id to prove the key and the schema are usable.
func (c *Client) Ping(ctx context.Context) error {
	return c.exec(ctx, http.MethodGet, "carriers", func() error {
		_, _, err := c.rest.From("carriers").Select("mc_number", "", false).Limit(1, "").Execute()
		return err
	})
}

// payload marshals ahead of the builder, which would otherwise record a
// marshal failure on the shared client and fail every later call.
func payload(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// between renders an inclusive range as PostgREST logic-tree terms.
// The builder keys filters by column, so two bounds on one column must go through and=().
func between(column string, min, max float64) string {
	return column + ".gte." + formatFloat(min) + "," + column + ".lte." + formatFloat(max)
}
