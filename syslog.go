//go:build !windows

package fence

import (
	"log/syslog"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

const syslogTag = "fence_mold"

func addSyslogHook() error {
	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, syslogTag)
	if err != nil {
		return err
	}

	logrus.AddHook(hook)
	return nil
}
