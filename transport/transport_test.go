package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"groceria/session"
	"groceria/snapshot"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClientRelaysSnapshotsAndCommands(t *testing.T) {
	Convey("Given a server that upgrades a connection through transport.Client", t, func() {
		updates := make(chan snapshot.Snapshot, 4)
		commands := make(chan session.Command, 4)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cli, err := Upgrade(updates, commands, w, r)
			if err != nil {
				return
			}
			_ = cli.Sync()
		}))
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("A published snapshot reaches the client", func() {
			updates <- snapshot.Snapshot{Rows: 4, Cols: 4, Final: true}
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var got snapshot.Snapshot
			err := conn.ReadJSON(&got)
			So(err, ShouldBeNil)
			So(got.Rows, ShouldEqual, 4)
			So(got.Final, ShouldBeTrue)
		})

		Convey("A command sent by the client is forwarded to commandsOut", func() {
			err := conn.WriteJSON(session.Command{Cmd: session.CmdPause})
			So(err, ShouldBeNil)

			select {
			case cmd := <-commands:
				So(cmd.Cmd, ShouldEqual, session.CmdPause)
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for forwarded command")
			}
		})
	})
}
