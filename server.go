package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/contrib/renders/multitemplate"
	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

// MAX_UPLOAD bounds request bodies; the codec buffers them in memory.
const MAX_UPLOAD = 256 << 20

const layoutTemplate = `<!DOCTYPE html>
<html>
<head><title>huffzip</title></head>
<body>
<h1>huffzip</h1>
{{template "content" .}}
</body>
</html>`

const indexTemplate = `{{define "content"}}
<p>POST a file body to <code>/compress</code> or <code>/decompress</code>.</p>
<p>Chunk size: {{.ChunkSize}} bytes.</p>
{{if .Last}}<p>Last job: {{.Last}}</p>{{end}}
{{if .IRC}}<p>IRC: {{.IRC}}</p>{{end}}
<pre id="events"></pre>
<script>
var ws = new WebSocket((location.protocol == "https:" ? "wss://" : "ws://") + location.host + "/events/ws");
ws.onmessage = function(ev) {
  document.getElementById("events").textContent += ev.data + "\n";
};
</script>
{{end}}`

func newRender() (multitemplate.Render, error) {
	render := multitemplate.New()

	layout, err := template.New("layout").Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("cannot parse template %q: %w", "layout", err)
	}
	index, err := template.Must(layout.Clone()).Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("cannot parse template %q: %w", "index.html", err)
	}
	render.Add("index.html", index)

	return render, nil
}

func setReportHeaders(c *gin.Context, r *Report) {
	c.Header("X-Huffzip-Input-Size", strconv.FormatInt(r.InputSize, 10))
	c.Header("X-Huffzip-Output-Size", strconv.FormatInt(r.OutputSize, 10))
	c.Header("X-Huffzip-Symbols", strconv.Itoa(r.Symbols))
	c.Header("X-Huffzip-Digest", r.Digest)
}

func abortWithCodecError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var ferr *FormatError
	switch {
	case errors.As(err, &ferr), errors.Is(err, ErrTruncated), errors.Is(err, ErrInternalConsistency):
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
	})
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MAX_UPLOAD+1))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if len(body) > MAX_UPLOAD {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return nil, false
	}
	return body, true
}

// NewServer builds the HTTP front end of the codec. bot may be nil.
func NewServer(config *Config, reporter *Reporter, bot *IRCBot) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())

	render, err := newRender()
	if err != nil {
		return nil, err
	}
	r.HTMLRender = render

	opts := config.Options(reporter)

	r.GET("/", func(c *gin.Context) {
		var last string
		if report, ok := reporter.Last(); ok {
			last = report.String()
		}
		var irc string
		if bot != nil {
			irc = "offline"
			if bot.IsOnline() {
				irc = "online in #" + bot.ChannelName
			}
		}
		c.HTML(http.StatusOK, "index.html", gin.H{
			"ChunkSize": opts.chunkSize(),
			"Last":      last,
			"IRC":       irc,
		})
	})

	r.POST("/compress", func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		t0 := time.Now()
		report := &Report{Op: "compress", Input: c.ClientIP(), Output: "response"}

		out := &bytes.Buffer{}
		s := NewStorageWriter(out)
		stats, err := Encode(c.Request.Context(), bytes.NewReader(body), s, opts)
		if err == nil {
			err = s.Close()
		}
		if err != nil {
			finish(report, t0, opts, err)
			abortWithCodecError(c, err)
			return
		}

		report.InputSize = stats.Total
		report.OutputSize = int64(out.Len())
		report.Symbols = stats.Symbols
		report.Digest = stats.Digest
		finish(report, t0, opts, nil)

		setReportHeaders(c, report)
		c.Data(http.StatusOK, "application/octet-stream", out.Bytes())
	})

	r.POST("/decompress", func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		t0 := time.Now()
		report := &Report{Op: "decompress", Input: c.ClientIP(), Output: "response"}

		s, err := NewStorageReader(bytes.NewReader(body))
		if err != nil {
			finish(report, t0, opts, err)
			abortWithCodecError(c, err)
			return
		}

		out := &bytes.Buffer{}
		stats, err := Decode(c.Request.Context(), s, out)
		if err != nil {
			finish(report, t0, opts, err)
			abortWithCodecError(c, err)
			return
		}

		report.InputSize = int64(len(body))
		report.OutputSize = stats.Total
		report.Symbols = stats.Symbols
		report.Digest = stats.Digest
		finish(report, t0, opts, nil)

		setReportHeaders(c, report)
		c.Data(http.StatusOK, "application/octet-stream", out.Bytes())
	})

	r.GET("/events/ws", func(c *gin.Context) {
		handler := websocket.Handler(func(ws *websocket.Conn) {
			defer ws.Close()

			ctx, cancel := context.WithCancel(c.Request.Context())
			defer cancel()
			go func() {
				// the client never talks; a read error means it went away
				io.Copy(io.Discard, ws)
				cancel()
			}()

			enc := json.NewEncoder(ws)
			for report := range reporter.Subscribe(ctx) {
				err := enc.Encode(report)
				if err != nil {
					log.Debugf("cannot send report: %s", err)
					return
				}
			}
		})
		handler.ServeHTTP(c.Writer, c.Request)
	})

	return r, nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
