package version

// Version is the release string shown in the banner and --version output.
const Version = "2.0.0"
