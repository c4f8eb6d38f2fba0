// internal/client/network/connection.go
package network

import (
	"net"
	"time"

	"lanchat/pkg/protocol"
)

const writeTimeout = 10 * time.Second

// Connection is a framed connection to one of the server ports.
type Connection struct {
	conn   net.Conn
	reader *protocol.Reader
}

func dial(address string) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	// TCP configurations
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	return conn, nil
}

func NewConnection(address string) (*Connection, error) {
	conn, err := dial(address)
	if err != nil {
		return nil, err
	}
	return wrap(conn), nil
}

func wrap(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		reader: protocol.NewReader(conn),
	}
}

func (c *Connection) WritePacket(p protocol.Packet) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.conn.Write(p.Frames())
	return err
}

func (c *Connection) ReadPacket() (protocol.Packet, error) {
	msg, err := c.reader.ReadMessage()
	if err != nil {
		return protocol.Packet{}, err
	}
	return protocol.ParsePacket(msg), nil
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
