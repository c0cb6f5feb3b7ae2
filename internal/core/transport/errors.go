package transport

import "errors"

// ErrNoServerCertificate 需要监听但没有可用的服务端证书
var ErrNoServerCertificate = errors.New("no server certificate configured")
