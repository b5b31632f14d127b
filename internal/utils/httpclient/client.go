package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"OrderSync/internal/config"
)

// NewHTTPClient 通用HTTP客户端构建方法（支持代理、超时、自动解压、平台级限流）
func NewHTTPClient(cfg *config.PlatformConfig, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  false,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// 配置代理
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", cfg.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	var rt http.RoundTripper = &compressedTransport{transport: transport, logger: logger}
	if cfg.RateLimit > 0 {
		// 聚合平台按token限频，超限直接封禁一段时间，客户端侧先压住
		rt = &limitedTransport{
			transport: rt,
			limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		}
	}

	return &http.Client{
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
		Transport: rt,
	}
}

// limitedTransport 出站请求限流，阻塞等令牌，请求上下文取消时放行错误
type limitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (l *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := l.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return l.transport.RoundTrip(req)
}

type compressedTransport struct {
	transport http.RoundTripper
	logger    *logrus.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Add("Accept-Encoding", "gzip")
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// 处理gzip解压
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{
			Reader: gzReader,
			closer: resp.Body,
		}
		resp.Header.Del("Content-Encoding")
	}

	return resp, nil
}

// gzipReadCloser 包装io.ReadCloser，Close时同时释放解压reader与原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		return err
	}
	return g.closer.Close()
}
