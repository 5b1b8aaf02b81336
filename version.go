package curriculum

// Version is overridden at build time with -ldflags "-X github.com/aretw0/curriculum.Version=...".
var Version = "dev"
