/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package log

import (
	"fmt"
	"io"
	"log"
)

type debugLogger struct {
	log.Logger
}

func newDebug(out io.Writer, prefix string, flag int) *debugLogger {
	var l debugLogger

	l.SetOutput(out)
	l.SetPrefix(prefix)
	l.SetFlags(flag)
	return &l
}

func (l *debugLogger) Error(v ...interface{}) {
	_ = l.Output(3, fmt.Sprint(append([]interface{}{"[ERROR] "}, v...)...))
	osExit(1)
}

func (l *debugLogger) Errorf(format string, v ...interface{}) {
	_ = l.Output(3, fmt.Sprintf("[ERROR] "+format, v...))
	osExit(1)
}

func (l *debugLogger) Info(v ...interface{}) {
	_ = l.Output(3, fmt.Sprint(append([]interface{}{"[INFO] "}, v...)...))
}

func (l *debugLogger) Infof(format string, v ...interface{}) {
	_ = l.Output(3, fmt.Sprintf("[INFO] "+format, v...))
}

func (l *debugLogger) Debug(v ...interface{}) {
	_ = l.Output(3, fmt.Sprint(append([]interface{}{"[DEBUG] "}, v...)...))
}

func (l *debugLogger) Debugf(format string, v ...interface{}) {
	_ = l.Output(3, fmt.Sprintf("[DEBUG] "+format, v...))
}

func (l *debugLogger) GetLogger() *log.Logger {
	return &l.Logger
}
