// Package thumbnail provides an image session for generating thumbnails on
// top of the engines in the backend package.
//
// A [Thumbnail] owns one decoded image. It computes target geometry with the
// geometry package (fit, fill, percent, crop and center crop), delegates the
// pixel work to its engine, and commits the new dimensions only after the
// engine call succeeds:
//
//	t, err := thumbnail.Create("/media/photo.jpg", thumbnail.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//
//	if err := t.AdaptiveResize(200, 200); err != nil {
//	    return err
//	}
//	return t.Save("/cache/photo-200.png")
//
// Every failure is returned as an error wrapping [ErrInvalidArgument] or
// [ErrOperationFailure] and is also appended to the session's error history
// ([Thumbnail.Errors], [Thumbnail.LastError]).
package thumbnail
