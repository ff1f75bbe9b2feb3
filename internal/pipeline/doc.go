// Package pipeline decodes the records of a collection in the background.
//
// Each record is decoded by one job on a fixed pool of workers. A job walks
// the record through its states:
//
//  1. Metadata: the metadata loader runs and its handle is attached with
//     SetExif.
//  2. PreviewImage: the embedded preview, if the file has one, becomes the
//     thumbnail.
//  3. FullImage: after waiting out memory pressure, the full image is
//     decoded (libvips when available, the Go decoders otherwise) and
//     copied into the record in horizontal bands, each reported with
//     UpdatePreviewRegion, before the final SetDecodedImage.
//
// A job is the record's Decoder: cancelling it ends in Cancelled. Files no
// decoder can read end in Fatal; other failures end in Error with the
// failure's message. RAW files that only an external decoder could read
// fall back to their embedded preview as the full image.
package pipeline
