// Package capture retrieves the screen of a Rigol DS2202E oscilloscope and
// stores it as an image file.
//
// A [Capturer] runs one capture per call to [Capturer.Run]:
//
//  1. optional ICMP reachability probe (a failure is only a warning)
//  2. open the TCP session
//  3. "*IDN?" and check the instrument class
//  4. ":DISP:DATA?" and reassemble the definite-length block
//  5. decode the payload and write MODEL_SERIAL_YYYY-MM-DD_HH.MM.SS.<ext>
//
// The session is closed on every path. No file is written unless the payload
// was received completely and decoded as an image.
package capture
