package sub

import "testing"

func FuzzParseList(f *testing.F) {
	seed := []string{
		"",
		"   \n",
		"# comment\nss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201\n",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/?plugin=simple-obfs%3Bobfs%3Dtls%3Bobfs-host%3Dexample.com#obfs\n",
		"ss://YWVzLTEyOC1nY206cGFzcw==@[::1]:8388#ipv6\n",
		"trojan://pw@example.com:443?sni=a&type=ws\n",
		"vless://u@[::1]:443?security=reality&pbk=k\n",
		"hysteria2://pw@example.com:1\n",
		"vmess://eyJhZGQiOiJhIiwicG9ydCI6MX0=\n",
		"ssr://OjE6Ojo6Og\n",
	}
	for _, s := range seed {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, content string) {
		nodes, stats := ParseList(content)
		if len(nodes) != stats.Parsed {
			t.Fatalf("nodes=%d, parsed=%d", len(nodes), stats.Parsed)
		}
		if stats.Parsed+stats.Failed+stats.Skipped != stats.Lines {
			t.Fatalf("stats do not add up: %+v", stats)
		}
		for _, n := range nodes {
			if n.Server() == "" {
				t.Fatalf("empty server")
			}
			port, ok := n.Port()
			if !ok || port < 1 || port > 65535 {
				t.Fatalf("port out of range: %d", port)
			}
			if n.Name() == "" {
				t.Fatalf("empty name")
			}
		}
	})
}
