package afip_test

import (
	"context"
	"encoding/base64"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mozilla.org/pkcs7"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
)

var in0Re = regexp.MustCompile(`<wsaa:in0>([^<]+)</wsaa:in0>`)

func testOptions() afip.Options {
	return afip.Options{Timeout: 5 * time.Second, MaxRetries: 2, RetryInterval: time.Millisecond}
}

func TestWSAAClient_Login(t *testing.T) {
	pair := validPair(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/xml; charset=utf-8", r.Header.Get("Content-Type"))
		action, ok := r.Header["Soapaction"]
		assert.True(t, ok, "SOAPAction debe enviarse aunque esté vacío")
		assert.Equal(t, []string{""}, action)

		body, _ := io.ReadAll(r.Body)
		m := in0Re.FindSubmatch(body)
		if !assert.NotNil(t, m) {
			return
		}
		der, err := base64.StdEncoding.DecodeString(string(m[1]))
		if !assert.NoError(t, err) {
			return
		}
		p7, err := pkcs7.Parse(der)
		if assert.NoError(t, err) {
			assert.Contains(t, string(p7.Content), "<service>wsfe</service>")
		}

		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write(loginEnvelope(html.EscapeString(loginTicketResponse)))
	}))
	defer srv.Close()

	env := afip.Testing.WithEndpoints(srv.URL, "")
	client := afip.NewWSAAClient(env, "", testOptions())

	res, err := client.Login(context.Background(), pair.certPEM, pair.keyPEM)
	require.NoError(t, err)
	assert.Equal(t, "c2lnbmF0dXJl", res.Sign)
	assert.Equal(t, "testing", client.Environment().String())
}

func TestWSAAClient_Login_SinCertificadoNoLlamaAlServidor(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := afip.NewWSAAClient(afip.Testing.WithEndpoints(srv.URL, ""), "wsfe", testOptions())
	_, err := client.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrCertificateFormat)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestWSAAClient_Login_TicketDuplicadoEnHTTP500(t *testing.T) {
	pair := validPair(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(faultEnvelope("ns1:coe.alreadyAuthenticated", "El CEE ya posee un TA valido para el acceso al WSN solicitado"))
	}))
	defer srv.Close()

	client := afip.NewWSAAClient(afip.Testing.WithEndpoints(srv.URL, ""), "wsfe", testOptions())
	res, err := client.Login(context.Background(), pair.certPEM, pair.keyPEM)
	require.NoError(t, err)
	assert.True(t, res.AlreadyAuthenticated)
}

func TestWSAAClient_Login_ReintentaAnte503(t *testing.T) {
	pair := validPair(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(loginEnvelope(html.EscapeString(loginTicketResponse)))
	}))
	defer srv.Close()

	client := afip.NewWSAAClient(afip.Testing.WithEndpoints(srv.URL, ""), "wsfe", testOptions())
	res, err := client.Login(context.Background(), pair.certPEM, pair.keyPEM)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWSAAClient_Login_TransporteAgotado(t *testing.T) {
	pair := validPair(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := afip.NewWSAAClient(afip.Testing.WithEndpoints(srv.URL, ""), "wsfe", testOptions())
	_, err := client.Login(context.Background(), pair.certPEM, pair.keyPEM)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "intento inicial + 2 reintentos")
}

func TestParseEnvironment(t *testing.T) {
	env, err := afip.ParseEnvironment("Production")
	require.NoError(t, err)
	assert.Equal(t, afip.Production, env)
	assert.Equal(t, "https://servicios1.afip.gov.ar/wsfev1/service.asmx", env.WSFEURL())

	env, err = afip.ParseEnvironment("testing")
	require.NoError(t, err)
	assert.Equal(t, "https://wsaahomo.afip.gov.ar/ws/services/LoginCms", env.WSAAURL())

	_, err = afip.ParseEnvironment("staging")
	assert.Error(t, err)
}
