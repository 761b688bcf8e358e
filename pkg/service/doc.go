// Package service implements the projection services, one per logical
// channel: the audio sinks, the video sink, the microphone source,
// sensors, input, bluetooth, wifi projection, and the capability
// channels. A Factory composes the configured set for each session.
// Rendering and capture hardware is reached through narrow backend
// contracts; null implementations stand in where no hardware exists.
package service
