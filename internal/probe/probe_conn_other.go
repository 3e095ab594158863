//go:build !linux

package probe

func openRawConn(id uint16) (Conn, error) {
	return nil, ErrUnsupported
}
