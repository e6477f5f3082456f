// ABOUTME: Audio source package for feeding the playback engine
// ABOUTME: Provides file and tone sources, track tags and an irregular chunker
// Package decode turns audio files into 16-bit little-endian PCM for the
// playback engine.
//
// Supports: raw PCM (any rate, mono or stereo), WAV, MP3, FLAC and a
// generated sine tone. ReadTags looks up display metadata.
//
// Every Source is an io.Reader of interleaved s16le bytes with a fixed
// Format. Chunker splits a reader into irregular chunks, the way audio
// arrives from a network or a plugin channel.
//
// Example:
//
//	src, err := decode.OpenFile("song.mp3", audio.Format{})
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	chunks := decode.NewChunker(src, 256, 4096, 1)
//	for {
//	    chunk, err := chunks.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    engine.Write(chunk)
//	}
package decode
