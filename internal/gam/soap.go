package gam

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// apiNamespace is the GAM message namespace for a given API version.
func apiNamespace(version string) string {
	return "https://www.google.com/apis/ads/publisher/" + version
}

// Fault is a SOAP fault returned by the GAM API. It covers auth,
// validation and server errors alike; callers treat any Fault as a
// remote-service failure for the affected operation.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("gam: soap fault %s: %s", f.Code, f.Message)
}

// requestEnvelope is the outgoing SOAP message. Namespace prefixes are
// emitted literally; encoding/xml does not manage them for us.
type requestEnvelope struct {
	XMLName xml.Name      `xml:"soapenv:Envelope"`
	SoapNS  string        `xml:"xmlns:soapenv,attr"`
	APINS   string        `xml:"xmlns:ns1,attr"`
	XSINS   string        `xml:"xmlns:xsi,attr"`
	Header  requestHeader `xml:"soapenv:Header"`
	Body    requestBody   `xml:"soapenv:Body"`
}

type requestHeader struct {
	RequestHeader soapRequestHeader `xml:"ns1:RequestHeader"`
}

// soapRequestHeader carries the network scope and application name GAM
// requires on every call. NetworkCode is empty for unscoped calls.
type soapRequestHeader struct {
	NetworkCode     string `xml:"ns1:networkCode,omitempty"`
	ApplicationName string `xml:"ns1:applicationName"`
}

type requestBody struct {
	Operation any
}

// responseEnvelope decodes the incoming SOAP message in two passes: the
// body is captured raw, checked for a fault, then unmarshalled into the
// typed per-operation response.
type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault *soapFault `xml:"Fault"`
	Raw   []byte     `xml:",innerxml"`
}

type soapFault struct {
	Code    string `xml:"faultcode"`
	Message string `xml:"faultstring"`
}

// call performs one SOAP operation against a GAM service and decodes
// the response body into out (when out is non-nil).
func (c *Client) call(ctx context.Context, service, operation string, request, out any) error {
	start := time.Now()
	err := c.doCall(ctx, service, request, out)
	c.metrics.ObserveGAMCall(service, operation, time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("gam: %s.%s: %w", service, operation, err)
	}
	return nil
}

func (c *Client) doCall(ctx context.Context, service string, request, out any) error {
	env := requestEnvelope{
		SoapNS: soapEnvelopeNS,
		APINS:  apiNamespace(c.apiVersion),
		XSINS:  "http://www.w3.org/2001/XMLSchema-instance",
		Header: requestHeader{
			RequestHeader: soapRequestHeader{
				NetworkCode:     c.networkCode,
				ApplicationName: c.appName,
			},
		},
		Body: requestBody{Operation: request},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL(service), &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("fetch access token: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var respEnv responseEnvelope
	if err := xml.Unmarshal(body, &respEnv); err != nil {
		// Non-SOAP responses (proxies, auth redirects) land here.
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if respEnv.Body.Fault != nil {
		return &Fault{
			Code:    respEnv.Body.Fault.Code,
			Message: respEnv.Body.Fault.Message,
		}
	}

	if out != nil {
		if err := xml.Unmarshal(respEnv.Body.Raw, out); err != nil {
			return fmt.Errorf("decode %T: %w", out, err)
		}
	}
	return nil
}

// soapDate is the GAM wire representation of a calendar date.
type soapDate struct {
	Year  int `xml:"ns1:year"`
	Month int `xml:"ns1:month"`
	Day   int `xml:"ns1:day"`
}

func toSoapDate(t time.Time) soapDate {
	return soapDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}
