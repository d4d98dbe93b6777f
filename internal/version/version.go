package version

// Version is set at build time via -ldflags "-X github.com/guiyumin/ytfetch/internal/version.Version=v1.2.3"
var Version = "dev"

// Repository is the GitHub slug used for self-update
const Repository = "guiyumin/ytfetch"
