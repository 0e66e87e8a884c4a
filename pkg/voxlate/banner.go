package voxlate

import (
	"bytes"
	"os"

	"github.com/dimiro1/banner"
)

const Version = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"VOXLATE\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
